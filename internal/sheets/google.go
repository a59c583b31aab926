package sheets

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
const googleSheetMimeType = "application/vnd.google-apps.spreadsheet"

// LoadCredentials returns service-account JSON from either an inline value or a file.
func LoadCredentials(inline, path string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, fmt.Errorf("google credentials: %w: neither inline json nor file configured", domain.ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file %s: %w", path, err)
	}
	return data, nil
}

// SheetsReader reads tabs live through the Google Sheets API.
type SheetsReader struct {
	srv           *gsheets.Service
	spreadsheetID string
}

// NewSheetsReader authenticates with a service account.
func NewSheetsReader(ctx context.Context, credentialsJSON []byte, spreadsheetID string) (*SheetsReader, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, gsheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}
	srv, err := gsheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	return &SheetsReader{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// Open returns the reader itself; every ReadTable hits the API.
func (r *SheetsReader) Open(ctx context.Context) (TableReader, error) {
	return r, nil
}

// ReadTable fetches the formatted values of a whole tab.
func (r *SheetsReader) ReadTable(ctx context.Context, name string) (Table, error) {
	resp, err := r.srv.Spreadsheets.Values.Get(r.spreadsheetID, quoteRange(name)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return Table{}, fmt.Errorf("sheet %q: %w: %w", name, domain.ErrSourceUnavailable, err)
	}
	return newTable(name, stringify(resp.Values)), nil
}

func quoteRange(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func stringify(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out
}

// DriveFile is the metadata kept for a candidate workbook.
type DriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}

// DriveExporter downloads workbooks from Google Drive. Native Google Sheets are
// exported as XLSX; uploaded XLSX files are downloaded as-is.
type DriveExporter struct {
	srv *drive.Service
}

// NewDriveExporter authenticates with a service account.
func NewDriveExporter(ctx context.Context, credentialsJSON []byte) (*DriveExporter, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}
	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &DriveExporter{srv: srv}, nil
}

// ListWorkbooks returns spreadsheets in a folder, most recently modified first.
func (d *DriveExporter) ListWorkbooks(ctx context.Context, folderID string) ([]DriveFile, error) {
	if folderID == "" {
		folderID = "root"
	}
	q := fmt.Sprintf("'%s' in parents and trashed=false and (mimeType='%s' or mimeType='%s')",
		folderID, googleSheetMimeType, xlsxMimeType)
	result, err := d.srv.Files.List().
		Q(q).
		Fields("files(id, name, mimeType, modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list folder %s: %w", folderID, err)
	}

	files := make([]DriveFile, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType, ModifiedTime: f.ModifiedTime})
	}
	// RFC 3339 timestamps sort lexically.
	sort.SliceStable(files, func(i, j int) bool { return files[i].ModifiedTime > files[j].ModifiedTime })
	return files, nil
}

// Download streams a workbook as XLSX bytes.
func (d *DriveExporter) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	meta, err := d.srv.Files.Get(fileID).Fields("id, mimeType").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to stat file %s: %w", fileID, err)
	}
	if meta.MimeType == googleSheetMimeType {
		resp, err := d.srv.Files.Export(fileID, xlsxMimeType).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("unable to export file %s: %w", fileID, err)
		}
		return resp.Body, nil
	}
	resp, err := d.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	return resp.Body, nil
}

// Source returns a WorkbookSource for one file, or for the newest workbook in a
// folder when fileID is empty.
func (d *DriveExporter) Source(fileID, folderID string) *WorkbookSource {
	return NewWorkbookSource("drive:"+fileID+folderID, func(ctx context.Context) (io.ReadCloser, error) {
		id := fileID
		if id == "" {
			files, err := d.ListWorkbooks(ctx, folderID)
			if err != nil {
				return nil, err
			}
			if len(files) == 0 {
				return nil, fmt.Errorf("no workbook in folder %s: %w", folderID, domain.ErrNotFound)
			}
			id = files[0].ID
		}
		return d.Download(ctx, id)
	})
}
