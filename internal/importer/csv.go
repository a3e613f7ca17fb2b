// Package importer turns external content sources into loop item content.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/models"
)

// Column order of the tabular import. The first row is a header.
const (
	colContent = iota
	colFormat
	colHashtags
	colLink
	colMediaURL
)

type Result struct {
	Contents []models.Content
	Skipped  int
}

// ParseCSV reads the header row and then one item per row. Rows with empty
// content are skipped and counted.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	res := &Result{}
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", models.ErrInvalidInput, err)
		}
		if header {
			header = false
			continue
		}

		c, ok := rowContent(record)
		if !ok {
			res.Skipped++
			continue
		}
		res.Contents = append(res.Contents, c)
	}
	return res, nil
}

func rowContent(record []string) (models.Content, bool) {
	// Leading tab and CR are formula triggers, so only spaces are trimmed
	// before sanitising.
	body := strings.TrimRight(strings.TrimLeft(cell(record, colContent), " "), " \t\r\n")
	if strings.TrimSpace(body) == "" {
		return models.Content{}, false
	}

	c := models.Content{
		Body:     Sanitize(body),
		Format:   models.ParseFormat(strings.ToLower(strings.TrimSpace(cell(record, colFormat)))),
		Hashtags: models.ParseHashtags(cell(record, colHashtags)),
		Link:     strings.TrimSpace(cell(record, colLink)),
	}
	if mediaURL := strings.TrimSpace(cell(record, colMediaURL)); mediaURL != "" {
		c.Media = models.MediaList{{URL: mediaURL, Kind: content.KindFromURL(mediaURL)}}
	}
	return c, true
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// Sanitize neutralises spreadsheet formulas by quoting cells that start with
// a formula trigger character.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
