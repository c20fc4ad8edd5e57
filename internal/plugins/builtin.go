package plugins

import (
	"context"
	"errors"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/ocr/tesseract"
	"github.com/ArionMiles/smartspend/pkg/ocr/vision"
	csvmirror "github.com/ArionMiles/smartspend/pkg/writer/csv"
	jsonmirror "github.com/ArionMiles/smartspend/pkg/writer/json"
	"github.com/ArionMiles/smartspend/pkg/writer/sheets"
)

var errNoHTTPClient = errors.New("google credentials are required")

// TesseractPlugin runs the local tesseract binary.
type TesseractPlugin struct{}

func (TesseractPlugin) Name() string             { return "tesseract" }
func (TesseractPlugin) Description() string      { return "Local tesseract CLI (LSTM engine)" }
func (TesseractPlugin) RequiredScopes() []string { return nil }

func (TesseractPlugin) NewRecognizer(_ context.Context, env Env) (api.Recognizer, error) {
	return tesseract.New(env.Config.TesseractBin, env.Logger), nil
}

// VisionPlugin calls Google Cloud Vision.
type VisionPlugin struct{}

func (VisionPlugin) Name() string             { return "vision" }
func (VisionPlugin) Description() string      { return "Google Cloud Vision document text detection" }
func (VisionPlugin) RequiredScopes() []string { return []string{vision.Scope} }

func (VisionPlugin) NewRecognizer(ctx context.Context, env Env) (api.Recognizer, error) {
	if env.HTTPClient == nil {
		return nil, errNoHTTPClient
	}
	r, err := vision.New(ctx, env.HTTPClient, env.Logger)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CSVPlugin appends to a local CSV log.
type CSVPlugin struct{}

func (CSVPlugin) Name() string             { return "csv" }
func (CSVPlugin) Description() string      { return "Append-only CSV expense log" }
func (CSVPlugin) RequiredScopes() []string { return nil }

func (CSVPlugin) NewMirror(_ context.Context, env Env) (api.Mirror, error) {
	w, err := csvmirror.New(csvmirror.Config{FilePath: env.Config.MirrorPath}, env.Logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// JSONPlugin keeps a local JSON array.
type JSONPlugin struct{}

func (JSONPlugin) Name() string             { return "json" }
func (JSONPlugin) Description() string      { return "JSON array of expense records" }
func (JSONPlugin) RequiredScopes() []string { return nil }

func (JSONPlugin) NewMirror(_ context.Context, env Env) (api.Mirror, error) {
	w, err := jsonmirror.New(jsonmirror.Config{FilePath: env.Config.MirrorPath}, env.Logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// SheetsPlugin appends rows to a Google Sheets spreadsheet.
type SheetsPlugin struct{}

func (SheetsPlugin) Name() string             { return "sheets" }
func (SheetsPlugin) Description() string      { return "Google Sheets spreadsheet" }
func (SheetsPlugin) RequiredScopes() []string { return []string{sheets.Scope} }

func (SheetsPlugin) NewMirror(ctx context.Context, env Env) (api.Mirror, error) {
	if env.HTTPClient == nil {
		return nil, errNoHTTPClient
	}
	w, err := sheets.New(ctx, env.HTTPClient, sheets.Config{
		SheetTitle: env.Config.GSheetsTitle,
		SheetID:    env.Config.GSheetsID,
		SheetName:  env.Config.GSheetsName,
	}, env.Logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}
