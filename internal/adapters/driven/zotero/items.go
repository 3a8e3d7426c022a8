package zotero

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// itemTypeAttachment is the Zotero item type of file records.
const itemTypeAttachment = "attachment"

type apiTag struct {
	Tag string `json:"tag"`
}

type itemData struct {
	Key         string   `json:"key"`
	Version     int      `json:"version"`
	ItemType    string   `json:"itemType"`
	Title       string   `json:"title"`
	ParentItem  string   `json:"parentItem"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"contentType"`
	Tags        []apiTag `json:"tags"`
}

type apiItem struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    itemData `json:"data"`
}

func (it apiItem) record() domain.Record {
	tags := make([]string, 0, len(it.Data.Tags))
	for _, t := range it.Data.Tags {
		tags = append(tags, t.Tag)
	}
	return domain.Record{ID: it.Key, Version: it.Version, Tags: tags}
}

func (it apiItem) libraryItem() domain.LibraryItem {
	return domain.LibraryItem{Record: it.record(), Title: it.Data.Title}
}

func (it apiItem) attachment() domain.Attachment {
	return domain.Attachment{
		Record:      it.record(),
		ParentID:    it.Data.ParentItem,
		Filename:    it.Data.Filename,
		ContentType: it.Data.ContentType,
	}
}

// ItemsByTag returns all top-level items carrying tag.
func (c *Client) ItemsByTag(ctx context.Context, tag string) ([]domain.LibraryItem, error) {
	raw, err := c.listItems(ctx, c.libraryPath("items", "top"), url.Values{"tag": {tag}}, "items by tag "+tag)
	if err != nil {
		return nil, err
	}
	items := make([]domain.LibraryItem, 0, len(raw))
	for _, it := range raw {
		items = append(items, it.libraryItem())
	}
	return items, nil
}

// ChildAttachments returns the attachment children of an item. Notes and
// annotations are dropped.
func (c *Client) ChildAttachments(ctx context.Context, itemID string) ([]domain.Attachment, error) {
	raw, err := c.listItems(ctx, c.libraryPath("items", itemID, "children"), nil, "children of "+itemID)
	if err != nil {
		return nil, err
	}
	var atts []domain.Attachment
	for _, it := range raw {
		if it.Data.ItemType != itemTypeAttachment {
			continue
		}
		atts = append(atts, it.attachment())
	}
	return atts, nil
}

// listItems follows start/limit pagination until Total-Results is reached.
func (c *Client) listItems(ctx context.Context, path string, query url.Values, operation string) ([]apiItem, error) {
	var all []apiItem
	start := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		q := url.Values{}
		for k, vs := range query {
			q[k] = slices.Clone(vs)
		}
		q.Set("format", "json")
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(PageSize))

		var page []apiItem
		hdr, err := c.getJSON(ctx, path, q, &page, operation)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		start += len(page)

		total, err := strconv.Atoi(hdr.Get(HeaderTotalResults))
		if len(page) == 0 || err != nil || start >= total {
			break
		}
	}

	return all, nil
}

// AddTags adds tags to rec. Tags already present are not sent again.
func (c *Client) AddTags(ctx context.Context, rec *domain.Record, tags ...string) error {
	want := slices.Clone(rec.Tags)
	for _, t := range tags {
		if !slices.Contains(want, t) {
			want = append(want, t)
		}
	}
	if len(want) == len(rec.Tags) {
		return nil
	}
	return c.putTags(ctx, rec, want)
}

// RemoveTags removes tags from rec.
func (c *Client) RemoveTags(ctx context.Context, rec *domain.Record, tags ...string) error {
	want := slices.DeleteFunc(slices.Clone(rec.Tags), func(t string) bool {
		return slices.Contains(tags, t)
	})
	if len(want) == len(rec.Tags) {
		return nil
	}
	return c.putTags(ctx, rec, want)
}

// putTags replaces rec's tag list, guarded by its version. A stale
// version fails with domain.ErrConflict and leaves rec untouched.
func (c *Client) putTags(ctx context.Context, rec *domain.Record, tags []string) error {
	body := struct {
		Tags []apiTag `json:"tags"`
	}{Tags: make([]apiTag, 0, len(tags))}
	for _, t := range tags {
		body.Tags = append(body.Tags, apiTag{Tag: t})
	}

	header := http.Header{}
	header.Set(HeaderIfUnmodifiedSinceVersion, strconv.Itoa(rec.Version))

	hdr, err := c.sendJSON(ctx, http.MethodPatch, c.libraryPath("items", rec.ID), body, header, nil, "retag "+rec.ID)
	if err != nil {
		return err
	}

	rec.Tags = tags
	if v, err := strconv.Atoi(hdr.Get(HeaderLastModifiedVersion)); err == nil {
		rec.Version = v
	}
	return nil
}

// DeleteTag removes tag from every record in the library.
func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.libraryPath("tags"), url.Values{"tag": {tag}}, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "delete tag "+tag)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete tag %s: unexpected status %d", tag, resp.StatusCode)
	}
	return nil
}
