package console

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cqkv/filecabinet"
	"github.com/cqkv/filecabinet/model"
	"go.uber.org/zap"
)

var (
	errUsage      = errors.New("the command was entered incorrectly")
	errNoCategory = errors.New("there is no such category, available categories: 'firstname', 'lastname', 'dateofbirth'")
)

func commandTable() map[string]command {
	return map[string]command{
		"help":   {run: (*Console).help, description: "prints the help screen", explanation: "The 'help' command prints the help screen. Use 'help <command>' for details."},
		"exit":   {run: (*Console).exit, description: "exits the application", explanation: "The 'exit' command exits the application."},
		"stat":   {run: (*Console).stat, description: "displays statistics for the records", explanation: "The 'stat' command displays the number of live and deleted records."},
		"create": {run: (*Console).create, description: "creates a record", explanation: "The 'create' command creates a record: create " + fieldsUsage},
		"edit":   {run: (*Console).edit, description: "edits a record", explanation: "The 'edit' command replaces a record: edit <id> " + fieldsUsage},
		"list":   {run: (*Console).list, description: "lists the records", explanation: "The 'list' command lists all records ordered by id."},
		"find":   {run: (*Console).find, description: "finds records", explanation: "The 'find' command finds records: find firstname|lastname|dateofbirth <value>"},
		"remove": {run: (*Console).remove, description: "removes a record by id", explanation: "The 'remove' command removes a record: remove <id>"},
		"purge":  {run: (*Console).purge, description: "defragments the data file", explanation: "The 'purge' command reclaims the space of removed records."},
		"export": {run: (*Console).export, description: "exports records", explanation: "The 'export' command writes all records to a cabinet file: export <path>"},
		"import": {run: (*Console).importRecords, description: "imports records", explanation: "The 'import' command merges records from a cabinet file: import <path>"},
	}
}

func (c *Console) help(params string) error {
	if params != "" {
		cmd, ok := c.commands[strings.ToLower(params)]
		if !ok {
			c.printf("There is no explanation for '%s' command.\n", params)
			return nil
		}
		c.println(cmd.explanation)
		return nil
	}

	c.println("Available commands:")
	for _, name := range c.names() {
		c.printf("\t%s\t- %s\n", name, c.commands[name].description)
	}
	c.println()
	return nil
}

func (c *Console) exit(string) error {
	c.println("Exiting an application...")
	c.running = false
	return nil
}

func (c *Console) stat(string) error {
	stat, err := c.service.GetStat()
	if err != nil {
		return err
	}
	c.printf("%d record(s). Number of deleted records: %d.\n", stat.Live, stat.Deleted)
	return nil
}

func (c *Console) create(params string) error {
	args, err := parseRecordArgs(params)
	if err != nil {
		return err
	}
	id, err := c.service.Create(args)
	if err != nil {
		return err
	}
	c.printf("Record #%d is created.\n", id)
	return nil
}

func (c *Console) edit(params string) error {
	idText, fields, _ := strings.Cut(params, " ")
	id, err := parseID(idText)
	if err != nil {
		return err
	}
	args, err := parseRecordArgs(fields)
	if err != nil {
		return err
	}
	if err = c.service.Edit(id, args); err != nil {
		return err
	}
	c.printf("Record #%d is updated.\n", id)
	return nil
}

func (c *Console) list(string) error {
	records, err := c.service.GetRecords()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		c.println("There are no records.")
		return nil
	}
	c.printRecords(records)
	return nil
}

func (c *Console) find(params string) error {
	category, value, ok := strings.Cut(params, " ")
	value = unquote(strings.TrimSpace(value))
	if !ok || value == "" {
		return fmt.Errorf("%w, input format: \"find category value\"", errUsage)
	}

	var records []model.Record
	var err error
	switch strings.ToLower(category) {
	case "firstname":
		records, err = c.service.FindByFirstName(value)
	case "lastname":
		records, err = c.service.FindByLastName(value)
	case "dateofbirth":
		var date model.Date
		if date, err = model.ParseDate(model.DateLayout, value); err != nil {
			return fmt.Errorf("%w: date of birth must look like 2000-Jan-31", errUsage)
		}
		records, err = c.service.FindByDateOfBirth(date)
	default:
		return errNoCategory
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		c.println("The record is not found.")
		return nil
	}
	c.printRecords(records)
	return nil
}

func (c *Console) remove(params string) error {
	id, err := parseID(params)
	if err != nil {
		return err
	}
	if err = c.service.Remove(id); err != nil {
		return err
	}
	c.printf("Record #%d is removed.\n", id)
	return nil
}

func (c *Console) purge(string) error {
	result, err := c.service.Purge()
	if err != nil {
		return err
	}
	c.printf("Data file processing is completed: %d of %d records were purged.\n", result.Deleted, result.Total)
	return nil
}

func (c *Console) export(params string) error {
	path := unquote(params)
	if path == "" {
		return fmt.Errorf("%w, input format: \"export path\"", errUsage)
	}

	snapshot, err := c.service.MakeSnapshot()
	if err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && !c.confirm(fmt.Sprintf("File %s exists, rewrite it?", path)) {
		return nil
	}

	// the target is locked before anything in it is touched
	target, err := c.open(path)
	if err != nil {
		return fmt.Errorf("export failed: can't open file %s: %w", path, err)
	}
	if exists {
		if err = target.Clear(); err != nil {
			_ = target.Close()
			return fmt.Errorf("export failed: can't rewrite file %s: %w", path, err)
		}
	}
	rejected, err := target.Restore(snapshot)
	if closeErr := target.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	c.printRejected(rejected)
	c.printf("All records are exported to file %s.\n", path)
	return nil
}

func (c *Console) importRecords(params string) error {
	path := unquote(params)
	if path == "" {
		return fmt.Errorf("%w, input format: \"import path\"", errUsage)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("import error: file %s does not exist", path)
	}

	source, err := c.open(path)
	if err != nil {
		return err
	}
	snapshot, err := source.MakeSnapshot()
	if closeErr := source.Close(); err == nil {
		err = closeErr
	}
	if errors.Is(err, filecabinet.ErrNoRecords) {
		c.println("Records were not imported, and the file is empty.")
		return nil
	}
	if err != nil {
		return err
	}

	rejected, err := c.service.Restore(snapshot)
	if err != nil {
		return err
	}

	c.printRejected(rejected)
	c.printf("%d records were imported from %s.\n", acceptedCount(snapshot, rejected), path)
	c.logger.Info("records imported", zap.String("path", path), zap.Int("rejected", len(rejected)))
	return nil
}

func (c *Console) printRecords(records []model.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	for _, r := range records {
		c.println(formatRecord(r))
	}
}

func (c *Console) printRejected(rejected map[int]string) {
	ids := make([]int, 0, len(rejected))
	for id := range rejected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		c.printf("Record #%d was not imported. Error: %s\n", id, rejected[id])
	}
}

// acceptedCount counts the snapshot records whose id was not rejected.
// Rejections are keyed by id, so len(rejected) undercounts repeated ids.
func acceptedCount(snapshot *filecabinet.Snapshot, rejected map[int]string) int {
	accepted := 0
	for _, r := range snapshot.Records() {
		if _, ok := rejected[r.ID]; !ok {
			accepted++
		}
	}
	return accepted
}

func parseID(text string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: id must be an integer, got %q", errUsage, text)
	}
	return id, nil
}

// describe turns an engine error into the line printed to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, filecabinet.ErrNotFound):
		return "There is no record with this id."
	case errors.Is(err, filecabinet.ErrNotSupported):
		return "This command is not supported by this mode of operation."
	case errors.Is(err, filecabinet.ErrNoRecords):
		return "Add at least one record."
	default:
		return "Error: " + err.Error()
	}
}
