package submit

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rescale/appendix-client/internal/constants"
	"github.com/rescale/appendix-client/internal/selection"
)

// Field is one scalar form value sent next to the files.
type Field struct {
	Name  string
	Value string
}

// Form holds the document settings the user configured.
type Form struct {
	ImageWidth      float64 // centimeters
	PaperSize       string  // A4, Letter, Legal
	OutputFormat    string  // docx, pdf
	CaptionPosition string  // top, bottom

	// Extra carries any additional form values verbatim.
	Extra []Field
}

// DefaultForm returns the generator's own defaults.
func DefaultForm() Form {
	return Form{
		ImageWidth:      constants.DefaultImageWidth,
		PaperSize:       constants.DefaultPaperSize,
		OutputFormat:    constants.DefaultOutputFormat,
		CaptionPosition: constants.DefaultCaptionPosition,
	}
}

// Fields flattens the form in the order the server declares its parameters.
// Empty enum values are omitted so the server applies its default.
func (f Form) Fields() []Field {
	fields := []Field{{Name: constants.FieldImageWidth, Value: FormatWidth(f.ImageWidth)}}
	if f.PaperSize != "" {
		fields = append(fields, Field{Name: constants.FieldPaperSize, Value: f.PaperSize})
	}
	if f.OutputFormat != "" {
		fields = append(fields, Field{Name: constants.FieldOutputFormat, Value: f.OutputFormat})
	}
	if f.CaptionPosition != "" {
		fields = append(fields, Field{Name: constants.FieldCaptionPosition, Value: f.CaptionPosition})
	}
	return append(fields, f.Extra...)
}

// FormatWidth renders a width without trailing zeros ("15", "12.5").
func FormatWidth(width float64) string {
	return strconv.FormatFloat(width, 'f', -1, 64)
}

// WidthLabel is the slider caption, e.g. "15 cm".
func WidthLabel(width float64) string {
	return FormatWidth(width) + " cm"
}

// Request is a fully encoded multipart submission. It is built fresh for
// every attempt and dropped once the call settles.
type Request struct {
	ID          string
	Body        []byte
	ContentType string
	FileCount   int
}

// BuildRequest encodes files and fields as multipart/form-data. Each file
// becomes a "files" part carrying its original name.
func BuildRequest(files []selection.File, fields []Field) (*Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			constants.FieldFiles, escapeQuotes(f.Name)))
		header.Set("Content-Type", contentTypeFor(f.Name))

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}

	for _, field := range fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", field.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return &Request{
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
		FileCount:   len(files),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
