package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/version"
)

// render writes v as indented JSON under --json, otherwise calls text.
func (a *App) render(v any, text func(w io.Writer)) error {
	if a.opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.stdout)
	return nil
}

func (a *App) table(header string, rows func(w io.Writer)) {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

func printPolicy(w io.Writer, p *policy.Policy) {
	_, _ = fmt.Fprintf(w, "ID:       %s\n", p.ID)
	_, _ = fmt.Fprintf(w, "Title:    %s\n", p.Title)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", p.Status)
	_, _ = fmt.Fprintf(w, "Version:  %s (#%d)\n", p.Version, p.VersionNumber)
	_, _ = fmt.Fprintf(w, "Created:  %s\n", p.CreatedAt.Format(time.RFC3339))
	if p.PublishedAt != nil {
		_, _ = fmt.Fprintf(w, "Published: %s\n", p.PublishedAt.Format(time.RFC3339))
	}
}

func approvalRow(w io.Writer, r *approval.Request) {
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
		r.ID, r.PolicyID, r.ApproverID, r.SequenceOrder, r.Status)
}

func printApproval(w io.Writer, r *approval.Request) {
	_, _ = fmt.Fprintf(w, "ID:        %s\n", r.ID)
	_, _ = fmt.Fprintf(w, "Policy:    %s\n", r.PolicyID)
	_, _ = fmt.Fprintf(w, "Approver:  %s\n", r.ApproverID)
	_, _ = fmt.Fprintf(w, "Sequence:  %d\n", r.SequenceOrder)
	_, _ = fmt.Fprintf(w, "Status:    %s\n", r.Status)
	if r.Comments != nil {
		_, _ = fmt.Fprintf(w, "Comments:  %s\n", *r.Comments)
	}
}

func printVersion(w io.Writer, v *version.PolicyVersion) {
	_, _ = fmt.Fprintf(w, "ID:       %s\n", v.ID)
	_, _ = fmt.Fprintf(w, "Policy:   %s\n", v.PolicyID)
	_, _ = fmt.Fprintf(w, "Version:  %s (#%d)\n", v.Version, v.VersionNumber)
	if v.CreatedBy != nil {
		_, _ = fmt.Fprintf(w, "Author:   %s\n", *v.CreatedBy)
	}
	if v.ChangeSummary != nil {
		_, _ = fmt.Fprintf(w, "Summary:  %s\n", *v.ChangeSummary)
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", v.Content)
}

// readContent returns inline content, or the file at path ("-" for stdin).
func readContent(inline, path string) (string, error) {
	if path == "" {
		return inline, nil
	}
	if inline != "" {
		return "", fmt.Errorf("use either --content or --file, not both")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
