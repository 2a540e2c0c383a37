package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultUploadEndpoint = "/api/upload/"
	DefaultStatusEndpoint = "/api/recognition-status/{id}/"
)

// UploadFile names a local file to send as the multipart "file" field.
type UploadFile struct {
	Path        string
	Name        string
	ContentType string
}

// Upload posts the file to endpoint (DefaultUploadEndpoint when empty). Only
// a 201 response counts as success.
func (c *Client) Upload(ctx context.Context, endpoint string, file UploadFile) (UploadedAsset, error) {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultUploadEndpoint
	}
	var asset UploadedAsset
	status, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   endpoint,
		form:   fileForm(nil, "file", file),
		auth:   true,
	}, &asset)
	if err != nil {
		return UploadedAsset{}, err
	}
	if status != http.StatusCreated {
		return UploadedAsset{}, fmt.Errorf("upload returned status %d, want %d", status, http.StatusCreated)
	}
	return asset, nil
}

// RecognitionStatus queries the recognition state of an uploaded asset.
// The endpoint template's "{id}" placeholder is replaced with assetID.
func (c *Client) RecognitionStatus(ctx context.Context, endpoint string, assetID int64) (RecognitionResult, error) {
	if assetID <= 0 {
		return RecognitionResult{}, fmt.Errorf("asset id required")
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultStatusEndpoint
	}
	path := strings.ReplaceAll(endpoint, "{id}", strconv.FormatInt(assetID, 10))
	var result RecognitionResult
	if _, err := c.send(ctx, request{method: http.MethodGet, path: path, auth: true}, &result); err != nil {
		return RecognitionResult{}, err
	}
	return result, nil
}

// SaveAnalysis persists a successful identification to the user's history.
func (c *Client) SaveAnalysis(ctx context.Context, record AnalysisRecord) error {
	_, err := c.send(ctx, request{method: http.MethodPost, path: "/api/save-music-analysis/", body: record, auth: true}, nil)
	return err
}

// ListAnalyses returns the user's analysis history.
func (c *Client) ListAnalyses(ctx context.Context) ([]AnalysisRecord, error) {
	var out []AnalysisRecord
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/api/music-analyses/", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFiles returns the user's uploads, newest first.
func (c *Client) ListFiles(ctx context.Context) ([]UploadedAsset, error) {
	var out []UploadedAsset
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/api/files/", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFile removes one of the user's uploads.
func (c *Client) DeleteFile(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("file id required")
	}
	_, err := c.send(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/api/files/%d/", id), auth: true}, nil)
	return err
}

// formBody is one multipart request body. The file part is streamed from
// disk, so only the text fields and part headers are held in memory.
type formBody struct {
	reader      io.ReadCloser
	contentType string
	size        int64
}

// fileForm returns a factory producing a multipart body with the given text
// fields and, when file.Path is set, the file under fileField. Each call
// reopens the file so the request can be replayed.
func fileForm(fields map[string]string, fileField string, file UploadFile) func() (formBody, error) {
	return func() (formBody, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for key, value := range fields {
			if err := w.WriteField(key, value); err != nil {
				return formBody{}, err
			}
		}
		if file.Path == "" {
			if err := w.Close(); err != nil {
				return formBody{}, err
			}
			return formBody{
				reader:      io.NopCloser(bytes.NewReader(buf.Bytes())),
				contentType: w.FormDataContentType(),
				size:        int64(buf.Len()),
			}, nil
		}

		f, err := os.Open(file.Path)
		if err != nil {
			return formBody{}, fmt.Errorf("open upload: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return formBody{}, fmt.Errorf("stat upload: %w", err)
		}
		if err := createFilePart(w, fileField, file); err != nil {
			_ = f.Close()
			return formBody{}, err
		}
		headLen := buf.Len()
		// Close appends the closing boundary after the part headers.
		if err := w.Close(); err != nil {
			_ = f.Close()
			return formBody{}, err
		}
		raw := buf.Bytes()
		head, tail := raw[:headLen], raw[headLen:]
		return formBody{
			reader: fileReader{
				Reader: io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail)),
				file:   f,
			},
			contentType: w.FormDataContentType(),
			size:        int64(len(head)) + info.Size() + int64(len(tail)),
		}, nil
	}
}

// fileReader closes the underlying file once the transport is done with the
// body.
type fileReader struct {
	io.Reader
	file *os.File
}

func (r fileReader) Close() error { return r.file.Close() }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func createFilePart(w *multipart.Writer, field string, file UploadFile) error {
	name := file.Name
	if name == "" {
		name = filepath.Base(file.Path)
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)
	_, err := w.CreatePart(h)
	return err
}
