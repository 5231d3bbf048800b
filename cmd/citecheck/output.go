package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/citecheck/internal/citation"
)

// Title truncation length for human-readable listings
const listTitleMaxLen = 70

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ExtractResponse is the response of the extract command.
type ExtractResponse struct {
	Style     string              `json:"style"`
	Count     int                 `json:"count"`
	Citations []citation.Citation `json:"citations"`
}

// VerifyResponse is the response of the verify command.
type VerifyResponse struct {
	Style   string                  `json:"style"`
	Total   int                     `json:"total"`
	Found   int                     `json:"found"`
	Results []citation.SearchResult `json:"results"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// printCitationsHuman prints extracted citations in human-readable format.
func printCitationsHuman(style string, citations []citation.Citation) {
	fmt.Printf("Detected style: %s\n", style)
	fmt.Printf("Found %d citations\n\n", len(citations))
	for _, c := range citations {
		title := "(no title)"
		if c.Title != nil {
			title = truncateString(*c.Title, listTitleMaxLen)
		}
		fmt.Printf("%s. %s\n", c.ID, title)
		if c.Authors != nil {
			fmt.Printf("   %s", *c.Authors)
			if c.Year != nil {
				fmt.Printf(" (%s)", *c.Year)
			}
			fmt.Println()
		}
	}
}

// printResultsHuman prints verification results in human-readable format.
func printResultsHuman(results []citation.SearchResult) {
	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Printf("%s. ERROR %s\n", r.Citation.ID, r.Error)
		case r.Found:
			fmt.Printf("%s. [%.2f] %s (%s)\n", r.Citation.ID, r.Confidence,
				truncateString(r.Paper.Title, listTitleMaxLen), r.Source)
			if len(r.Paper.Authors) > 0 {
				fmt.Printf("   %s\n", formatAuthors(r.Paper.Authors))
			}
			if r.Paper.DOI != "" {
				fmt.Printf("   doi:%s\n", r.Paper.DOI)
			}
		default:
			fmt.Printf("%s. [%.2f] not found\n", r.Citation.ID, r.Confidence)
		}
	}
}

// formatAuthors joins a candidate paper's authors for display.
func formatAuthors(authors []string) string {
	return strings.Join(authors, ", ")
}
