package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/protocol"
)

// linkModeImportedFile is the link mode of attachments whose bytes live
// in library storage.
const linkModeImportedFile = "imported_file"

// ItemTemplate returns a blank record template, e.g. ("attachment", "imported_file").
func (c *Client) ItemTemplate(ctx context.Context, kind, subkind string) (domain.ItemTemplate, error) {
	query := url.Values{"itemType": {kind}}
	if subkind != "" {
		query.Set("linkMode", subkind)
	}
	tmpl := domain.ItemTemplate{}
	if _, err := c.getJSON(ctx, "/items/new", query, &tmpl, "item template"); err != nil {
		return nil, err
	}
	return tmpl, nil
}

type writeFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type writeResponse struct {
	Success map[string]string       `json:"success"`
	Failed  map[string]writeFailure `json:"failed"`
}

// CreateAttachmentRecord registers a record built from tmpl under parentID
// and returns its key.
func (c *Client) CreateAttachmentRecord(ctx context.Context, tmpl domain.ItemTemplate, parentID string) (string, error) {
	rec := maps.Clone(tmpl)
	if rec == nil {
		rec = domain.ItemTemplate{}
	}
	rec["parentItem"] = parentID

	var out writeResponse
	_, err := c.sendJSON(ctx, http.MethodPost, c.libraryPath("items"), []domain.ItemTemplate{rec}, nil, &out,
		"create attachment under "+parentID)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %w", domain.ErrAttachmentRecord, err)
		}
		return "", err
	}

	if key, ok := out.Success["0"]; ok && key != "" {
		return key, nil
	}
	if f, ok := out.Failed["0"]; ok {
		return "", fmt.Errorf("%w: %s (%d)", domain.ErrAttachmentRecord, f.Message, f.Code)
	}
	return "", fmt.Errorf("%w: no key returned", domain.ErrAttachmentRecord)
}

// AttachFiles uploads local files as new attachments of parentID. The
// first path is the primary file and its failure fails the call; later
// files are companions whose failures are logged and skipped.
func (c *Client) AttachFiles(ctx context.Context, paths []string, parentID string) (domain.AttachResult, error) {
	if len(paths) == 0 {
		return domain.AttachResult{Status: domain.AttachFailure, Reason: "no files"},
			fmt.Errorf("%w: no files to attach", domain.ErrInvalidInput)
	}

	res := domain.AttachResult{Status: domain.AttachUnchanged}
	for i, p := range paths {
		key, existed, err := c.attachFile(ctx, p, parentID)
		if err != nil {
			if i == 0 {
				return domain.AttachResult{Status: domain.AttachFailure, Reason: err.Error()}, err
			}
			logger.Warn("zotero: companion %s not attached: %v", filepath.Base(p), err)
			continue
		}
		res.Keys = append(res.Keys, key)
		if !existed {
			res.Status = domain.AttachSuccess
		}
	}
	return res, nil
}

type uploadAuth struct {
	Exists      int    `json:"exists"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	UploadKey   string `json:"uploadKey"`
}

// attachFile creates an attachment record and runs the upload
// authorisation flow for one file. existed reports that the library
// already held identical bytes.
func (c *Client) attachFile(ctx context.Context, path, parentID string) (key string, existed bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	hash, ok, err := protocol.Digest(path)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}

	tmpl, err := c.ItemTemplate(ctx, itemTypeAttachment, linkModeImportedFile)
	if err != nil {
		return "", false, err
	}
	name := filepath.Base(path)
	tmpl["title"] = name
	tmpl["filename"] = name
	tmpl["contentType"] = domain.ContentTypeFor(name)

	key, err = c.CreateAttachmentRecord(ctx, tmpl, parentID)
	if err != nil {
		return "", false, err
	}

	auth, err := c.authorizeUpload(ctx, key, name, hash, info.Size(), info.ModTime().UnixMilli())
	if err != nil {
		return "", false, err
	}
	if auth.Exists == 1 {
		return key, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := c.uploadFile(ctx, auth, data); err != nil {
		return "", false, err
	}
	if err := c.registerUpload(ctx, key, auth.UploadKey); err != nil {
		return "", false, err
	}
	logger.Debug("zotero: uploaded %s as %s", name, key)
	return key, false, nil
}

// authorizeUpload asks the library where to put a new file.
func (c *Client) authorizeUpload(
	ctx context.Context, key, filename, hash string, size, mtimeMillis int64,
) (uploadAuth, error) {
	form := url.Values{
		"md5":      {hash},
		"filename": {filename},
		"filesize": {strconv.FormatInt(size, 10)},
		"mtime":    {strconv.FormatInt(mtimeMillis, 10)},
	}

	var auth uploadAuth
	resp, err := c.postForm(ctx, key, form, "authorize upload "+key)
	if err != nil {
		return auth, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return auth, fmt.Errorf("authorize upload %s: %w", key, err)
	}
	if auth.Exists != 1 && (auth.URL == "" || auth.UploadKey == "") {
		return auth, fmt.Errorf("authorize upload %s: %w: incomplete authorization", key, domain.ErrTransient)
	}
	return auth, nil
}

// uploadFile posts the file to the storage host. The request is not
// authenticated with the API key.
func (c *Client) uploadFile(ctx context.Context, auth uploadAuth, data []byte) error {
	body := make([]byte, 0, len(auth.Prefix)+len(data)+len(auth.Suffix))
	body = append(body, auth.Prefix...)
	body = append(body, data...)
	body = append(body, auth.Suffix...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", auth.ContentType)

	resp, err := c.files.Do(req)
	if err != nil {
		return wrapTransportError(err, "upload file")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload file: %w", newAPIError(resp))
	}
	return nil
}

// registerUpload tells the library the upload finished.
func (c *Client) registerUpload(ctx context.Context, key, uploadKey string) error {
	resp, err := c.postForm(ctx, key, url.Values{"upload": {uploadKey}}, "register upload "+key)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) postForm(ctx context.Context, key string, form url.Values, operation string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.libraryPath("items", key, "file"), nil,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("If-None-Match", "*")
	return c.do(req, operation)
}

// FetchAttachment downloads att's file into destDir. The library answers
// with the bytes or a redirect to its storage host.
func (c *Client) FetchAttachment(ctx context.Context, att domain.Attachment, destDir string) (string, error) {
	operation := "fetch " + att.ID
	req, err := c.newRequest(ctx, http.MethodGet, c.libraryPath("items", att.ID, "file"), nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req, operation)
	if err != nil {
		return "", err
	}

	if loc := resp.Header.Get("Location"); resp.StatusCode >= 300 && resp.StatusCode < 400 && loc != "" {
		resp.Body.Close()
		resp, err = c.followRedirect(ctx, req.URL, loc, operation)
		if err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	name := filepath.Base(att.Filename)
	if att.Filename == "" {
		name = att.ID
	}
	dest := filepath.Join(destDir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("%s: %w: %w", operation, domain.ErrTransient, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return dest, nil
}

func (c *Client) followRedirect(ctx context.Context, from *url.URL, loc, operation string) (*http.Response, error) {
	target, err := from.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("%s: bad redirect %q: %w", operation, loc, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.files.Do(req)
	if err != nil {
		return nil, wrapTransportError(err, operation)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", operation, newAPIError(resp))
	}
	return resp, nil
}
