package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/spf13/cobra"
)

var (
	inspectFormat string
	inspectSample int
	inspectSchema bool
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [key...]",
	Short: "Inspect the stored records",
	Long: `Inspect the raw records kept by the storage backend.

For each key this shows the value size, a short description of its JSON shape
and the start of the value. Pass keys to inspect only those.

Examples:
  fale-com-deus inspect                         # Every record
  fale-com-deus inspect chat_history --sample 0 # Sizes only
  fale-com-deus inspect --format json           # Machine readable
  fale-com-deus inspect --schema                # Also show the SQLite schema`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "text" && inspectFormat != "json" {
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}

		cfg, paths, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Storage.Path
		if path == "" {
			path = paths.StoragePath(cfg.Storage.Backend)
		}

		kv, err := internal.OpenKVStore(cfg.Storage.Backend, path)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		records, err := collectRecords(kv, args, inspectSample)
		_ = kv.Close()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if inspectFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		fmt.Fprintf(out, "📋 Storage: %s (%s)\n", path, cfg.Storage.Backend)
		fmt.Fprintf(out, "📊 Found %d record(s)\n\n", len(records))
		for _, r := range records {
			printRecord(out, r)
		}

		if inspectSchema {
			if !strings.EqualFold(cfg.Storage.Backend, internal.BackendSQLite) && cfg.Storage.Backend != "" {
				return fmt.Errorf("--schema needs the sqlite backend, not %s", cfg.Storage.Backend)
			}
			return inspectDatabase(out, path)
		}
		return nil
	},
}

// RecordInfo describes one stored key
type RecordInfo struct {
	Key     string `json:"key"`
	Size    int    `json:"size"`
	Shape   string `json:"shape"`
	Sample  string `json:"sample,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

func collectRecords(kv internal.KVStore, keys []string, sample int) ([]RecordInfo, error) {
	if len(keys) == 0 {
		var err error
		keys, err = kv.Keys()
		if err != nil {
			return nil, fmt.Errorf("failed to list keys: %w", err)
		}
		sort.Strings(keys)
	}

	records := make([]RecordInfo, 0, len(keys))
	for _, key := range keys {
		value, ok, err := kv.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			records = append(records, RecordInfo{Key: key, Shape: "missing", Missing: true})
			continue
		}
		records = append(records, RecordInfo{
			Key:    key,
			Size:   len(value),
			Shape:  describeShape(value),
			Sample: truncateValue(value, sample),
		})
	}
	return records, nil
}

// describeShape names the JSON type of value
func describeShape(value string) string {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return "text"
	}
	switch t := v.(type) {
	case []any:
		return fmt.Sprintf("JSON array, %d item(s)", len(t))
	case map[string]any:
		fields := make([]string, 0, len(t))
		for k := range t {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		return fmt.Sprintf("JSON object {%s}", strings.Join(fields, ", "))
	case string:
		return "JSON string"
	default:
		return fmt.Sprintf("JSON %T", t)
	}
}

// truncateValue keeps the first line of value, at most n runes
func truncateValue(value string, n int) string {
	if n <= 0 {
		return ""
	}
	line, _, more := strings.Cut(value, "\n")
	r := []rune(line)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	if more {
		return line + "..."
	}
	return line
}

func printRecord(w io.Writer, r RecordInfo) {
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(w, "🔑 %s\n", r.Key)
	if r.Missing {
		fmt.Fprintf(w, "   ⚠️  not found\n\n")
		return
	}
	fmt.Fprintf(w, "   Size: %d bytes\n", r.Size)
	fmt.Fprintf(w, "   Shape: %s\n", r.Shape)
	if r.Sample != "" {
		fmt.Fprintf(w, "   Value: %s\n", r.Sample)
	}
	fmt.Fprintln(w)
}

func inspectDatabase(w io.Writer, dbPath string) error {
	db, err := internal.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}

	fmt.Fprintf(w, "📐 Schema (%d table(s)):\n", len(tables))
	for _, table := range tables {
		columns, err := getTableSchema(db, table)
		if err != nil {
			fmt.Fprintf(w, "⚠️  Error inspecting table %s: %v\n", table, err)
			continue
		}
		fmt.Fprintf(w, "📦 %s\n", table)
		for _, col := range columns {
			pk := ""
			if col.PrimaryKey {
				pk = " [PRIMARY KEY]"
			}
			notNull := ""
			if col.NotNull {
				notNull = " NOT NULL"
			}
			fmt.Fprintf(w, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
		}
	}
	return nil
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func getTableSchema(db *sql.DB, tableName string) ([]ColumnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var cid int
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
	inspectCmd.Flags().IntVar(&inspectSample, "sample", 120, "Characters of each value to show (0 for none)")
	inspectCmd.Flags().BoolVar(&inspectSchema, "schema", false, "Show the SQLite table schema")
}
