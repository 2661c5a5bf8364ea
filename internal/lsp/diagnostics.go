package lsp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

// HasDiagnosticsChanged reports whether the current diagnostic sets
// differ from a previously captured snapshot.
func HasDiagnosticsChanged(current, original map[protocol.DocumentUri][]protocol.Diagnostic) bool {
	for uri, diags := range current {
		origDiags, exists := original[uri]
		if !exists || len(diags) != len(origDiags) {
			return true
		}
	}
	return false
}

func severityLabel(s protocol.DiagnosticSeverity) string {
	switch s {
	case protocol.SeverityError:
		return "Error"
	case protocol.SeverityWarning:
		return "Warn"
	case protocol.SeverityHint:
		return "Hint"
	default:
		return "Info"
	}
}

func formatDiagnostic(pth string, diagnostic protocol.Diagnostic, source string) string {
	location := fmt.Sprintf("%s:%d:%d", pth, diagnostic.Range.Start.Line+1, diagnostic.Range.Start.Character+1)

	sourceInfo := source
	if diagnostic.Source != "" {
		sourceInfo = diagnostic.Source
	}

	codeInfo := ""
	if diagnostic.Code != nil {
		codeInfo = fmt.Sprintf("[%v]", diagnostic.Code)
	}

	tagsInfo := ""
	if len(diagnostic.Tags) > 0 {
		tags := []string{}
		for _, tag := range diagnostic.Tags {
			switch tag {
			case protocol.Unnecessary:
				tags = append(tags, "unnecessary")
			case protocol.Deprecated:
				tags = append(tags, "deprecated")
			}
		}
		if len(tags) > 0 {
			tagsInfo = fmt.Sprintf(" (%s)", strings.Join(tags, ", "))
		}
	}

	return fmt.Sprintf("%s: %s [%s]%s%s %s",
		severityLabel(diagnostic.Severity),
		location,
		sourceInfo,
		codeInfo,
		tagsInfo,
		diagnostic.Message)
}

func sortBySeverity(diags []string) {
	sort.Slice(diags, func(i, j int) bool {
		iIsError := strings.HasPrefix(diags[i], "Error")
		jIsError := strings.HasPrefix(diags[j], "Error")
		if iIsError != jIsError {
			return iIsError
		}
		return diags[i] < diags[j]
	})
}

// FormatDiagnostics renders every cached diagnostic across the given
// clients as a plain-text report. Diagnostics for filePath come first,
// followed by the rest of the project, each section sorted with errors
// ahead of other severities.
func FormatDiagnostics(filePath string, clients map[string]*Client) string {
	fileDiagnostics := []string{}
	projectDiagnostics := []string{}

	for lspName, client := range clients {
		for location, diags := range client.GetDiagnostics() {
			isCurrentFile := location.Path() == filePath
			for _, diag := range diags {
				formatted := formatDiagnostic(location.Path(), diag, lspName)
				if isCurrentFile {
					fileDiagnostics = append(fileDiagnostics, formatted)
				} else {
					projectDiagnostics = append(projectDiagnostics, formatted)
				}
			}
		}
	}

	sortBySeverity(fileDiagnostics)
	sortBySeverity(projectDiagnostics)

	var b strings.Builder

	if len(fileDiagnostics) > 0 {
		b.WriteString(filePath + ":\n")
		b.WriteString("  " + strings.Join(fileDiagnostics, "\n  "))
		b.WriteString("\n")
	}

	if len(projectDiagnostics) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Elsewhere in the workspace:\n")
		b.WriteString("  " + strings.Join(projectDiagnostics, "\n  "))
		b.WriteString("\n")
	}

	if len(fileDiagnostics) > 0 || len(projectDiagnostics) > 0 {
		errors := CountSeverity(fileDiagnostics, "Error") + CountSeverity(projectDiagnostics, "Error")
		warnings := CountSeverity(fileDiagnostics, "Warn") + CountSeverity(projectDiagnostics, "Warn")
		b.WriteString(fmt.Sprintf("\n%d errors, %d warnings\n", errors, warnings))
	}

	return b.String()
}

func CountSeverity(diagnostics []string, severity string) int {
	count := 0
	for _, diag := range diagnostics {
		if strings.HasPrefix(diag, severity) {
			count++
		}
	}
	return count
}
