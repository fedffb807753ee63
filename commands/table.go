package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"

	"sbadm/common"
	"sbadm/entity"
	"sbadm/listview"
)

func output(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

func title(rec entity.Record) string {
	for _, key := range []string{"title", "name", "prompt"} {
		if s := rec.String(key); s != "" {
			return text.Trim(s, 48)
		}
	}
	return ""
}

func created(rec entity.Record) string {
	if t, ok := rec.CreatedAt(); ok {
		return t.Local().Format(time.DateTime)
	}
	return "-"
}

// attempts shows generation attempts against configured ceiling.
func attempts(rec entity.Record, ceiling int) string {
	switch v := rec["attempts"].(type) {
	case float64:
		return fmt.Sprintf("%d/%d", int(v), ceiling)
	case int:
		return fmt.Sprintf("%d/%d", v, ceiling)
	}
	return "-"
}

// renderList writes page of records followed by pagination line and
// aggregate stats if server sent any.
func renderList(w io.Writer, resource common.Resource, view *listview.View, maxAttempts int) {
	items := view.Items()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle(resource.String())

	header := table.Row{"#", "ID", "TITLE", "STATUS", "CREATED"}
	if resource == common.ResourceGenerations {
		header = append(header, "ATTEMPTS")
	}
	tw.AppendHeader(header)

	d := view.Controller().Display()
	for i, rec := range items {
		row := table.Row{d.Start + i, rec.ID(), title(rec), rec.String("status"), created(rec)}
		if resource == common.ResourceGenerations {
			row = append(row, attempts(rec, maxAttempts))
		}
		tw.AppendRow(row)
	}
	if d.Total > 0 {
		tw.AppendFooter(table.Row{"", fmt.Sprintf("%d-%d of %d", d.Start, d.End, d.Total), fmt.Sprintf("page %d/%d", d.Page, d.TotalPages)})
	} else {
		tw.AppendFooter(table.Row{"", "no records"})
	}
	tw.Render()

	stats, keys := view.Stats()
	if len(keys) == 0 {
		return
	}
	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetStyle(table.StyleLight)
	st.AppendHeader(table.Row{"STAT", "VALUE"})
	for _, k := range keys {
		st.AppendRow(table.Row{k, stats[k]})
	}
	st.Render()
}

// renderRecord writes single record as field/value table, nested values as
// compact JSON.
func renderRecord(w io.Writer, resource common.Resource, rec entity.Record) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("%s %s", resource, rec.ID()))
	tw.AppendHeader(table.Row{"FIELD", "VALUE"})
	for _, k := range keys {
		var value string
		switch v := rec[k].(type) {
		case map[string]any, []any:
			data, _ := json.Marshal(v)
			value = text.Trim(string(data), 64)
		case nil:
		default:
			value = fmt.Sprint(v)
		}
		tw.AppendRow(table.Row{k, value})
	}
	tw.Render()
}
