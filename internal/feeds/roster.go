package feeds

import (
	"context"
	"fmt"
	"strings"

	"citizenship/internal/nation"
	"citizenship/internal/titles"
	pstrings "citizenship/pkg/platform/strings"
)

// ColumnFeed reads one column of nation names from a sheet and grants each
// nation the same title. An empty Title uses the sheet's own name.
type ColumnFeed struct {
	name          string
	api           SheetsAPI
	spreadsheetID string
	rng           string
	title         string
}

func NewColumnFeed(name string, api SheetsAPI, spreadsheetID, rng, title string) *ColumnFeed {
	return &ColumnFeed{name: name, api: api, spreadsheetID: spreadsheetID, rng: rng, title: title}
}

// NewCitizensFeed titles every nation on the citizens roster with the
// roster sheet's name.
func NewCitizensFeed(api SheetsAPI, spreadsheetID, rng string) *ColumnFeed {
	return NewColumnFeed("citizens", api, spreadsheetID, rng, "")
}

// NewArmyFeed titles every enlisted nation.
func NewArmyFeed(api SheetsAPI, spreadsheetID, rng string) *ColumnFeed {
	return NewColumnFeed("army", api, spreadsheetID, rng, "NPA Soldiers")
}

func (f *ColumnFeed) Name() string { return f.name }

func (f *ColumnFeed) Contribute(ctx context.Context, scratch *titles.Scratch, credential string) error {
	vr, err := f.api.Values(ctx, credential, f.spreadsheetID, f.rng, "columns")
	if err != nil {
		return err
	}
	title := f.title
	if title == "" {
		title = vr.SheetTitle()
	}
	if title == "" {
		return NewFeedError(ErrorBadData, f.name, "range has no sheet name", nil)
	}
	scratch.Declare(title)
	if len(vr.Values) == 0 {
		return nil
	}
	for _, k := range pstrings.ParseUnique(vr.Values[0], nation.Normalize) {
		scratch.Grant(k, title)
	}
	return nil
}

const ministerPrefix = "Minister of "

// GovernmentFeed reads every visible sheet of the government workbook. Each
// row is title then nation; a nation gets both the row title and the sheet
// name. Rows below the delegate row are cabinet posts.
type GovernmentFeed struct {
	api           SheetsAPI
	spreadsheetID string
	columns       string
}

func NewGovernmentFeed(api SheetsAPI, spreadsheetID, columns string) *GovernmentFeed {
	return &GovernmentFeed{api: api, spreadsheetID: spreadsheetID, columns: columns}
}

func (f *GovernmentFeed) Name() string { return "government" }

func (f *GovernmentFeed) Contribute(ctx context.Context, scratch *titles.Scratch, credential string) error {
	meta, err := f.api.Metadata(ctx, credential, f.spreadsheetID)
	if err != nil {
		return err
	}
	var ranges []string
	for _, s := range meta.Sheets {
		if s.Properties.Hidden {
			continue
		}
		ranges = append(ranges, fmt.Sprintf("%s!%s", quoteSheet(s.Properties.Title), f.columns))
	}
	if len(ranges) == 0 {
		return nil
	}

	blocks, err := f.api.BatchGet(ctx, credential, f.spreadsheetID, ranges, "rows")
	if err != nil {
		return err
	}
	for _, block := range blocks {
		sheet := block.SheetTitle()
		scratch.Declare(sheet)
		executive := false
		for _, row := range block.Values {
			pair, err := nation.ParseTitledPair(trimAll(row)...)
			if err != nil || pair.Title == "" {
				continue
			}
			title := pair.Title
			if executive {
				title = ministerPrefix + title
			}
			scratch.Declare(title)
			scratch.Grant(pair.Nation, sheet, title)
			if strings.EqualFold(title, "delegate") {
				executive = true
			}
		}
	}
	return nil
}

// quoteSheet renders a sheet title as a quoted A1 prefix.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
