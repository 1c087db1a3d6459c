package feeds

import (
	"context"

	"citizenship/internal/feeds/sheets"
	"citizenship/internal/nation"
	"citizenship/internal/nsapi"
)

// NationAPI is the slice of the NationStates client the feeds use.
type NationAPI interface {
	Region(ctx context.Context, name nation.Key, shards ...string) (*nsapi.Region, error)
	WorldNations(ctx context.Context) ([]nation.Key, error)
}

// SheetsAPI is the slice of the spreadsheet client the feeds use.
type SheetsAPI interface {
	Values(ctx context.Context, key, spreadsheetID, rng, majorDimension string) (*sheets.ValueRange, error)
	Metadata(ctx context.Context, key, spreadsheetID string) (*sheets.Spreadsheet, error)
	BatchGet(ctx context.Context, key, spreadsheetID string, ranges []string, majorDimension string) ([]sheets.ValueRange, error)
}
