package ctl

import (
	"fmt"
	"sort"
	"strings"
)

// DiagnosticsOptions controls the diagnostics command.
type DiagnosticsOptions struct {
	JSON bool
}

// Diagnostics lists operator notes attached to devices or events.
func Diagnostics(baseURL string, opts DiagnosticsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Notes map[string]string `json:"notes"`
	}
	if err := getJSON(baseURL, "/api/diagnostics", &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	ids := make([]string, 0, len(resp.Notes))
	for id := range resp.Notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Println()
	fmt.Println(header("  DIAGNOSTICS NOTES"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))
	if len(ids) == 0 {
		fmt.Println(colorize(dim, "  (none)"))
	}
	for _, id := range ids {
		fmt.Printf("  %s  %s\n", colorize(cyan, padRight(id, 24)), resp.Notes[id])
	}
	fmt.Println()

	return nil
}

// SetNoteOptions controls the set-note command.
type SetNoteOptions struct {
	JSON bool
}

// SetNote attaches or clears an operator note for the given id. Passing
// an empty note removes it.
func SetNote(baseURL, id, note string, opts SetNoteOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")
	if id == "" {
		return fmt.Errorf("diagnostics id required")
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	body := map[string]any{"note": note}
	if err := postJSON(baseURL, "/api/diagnostics/"+id, body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	if resp.OK {
		if note == "" {
			fmt.Printf("  %s  note cleared for %s\n", colorize(green, "OK"), id)
		} else {
			fmt.Printf("  %s  note saved for %s\n", colorize(green, "OK"), id)
		}
	} else {
		fmt.Printf("  %s  %s\n", colorize(red, "FAILED"), resp.Error)
	}
	fmt.Println()

	return nil
}
