package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/scratch"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncConfig holds the orchestrator's folders and limits.
type SyncConfig struct {
	// UnreadFolder is the tablet folder documents are pushed to.
	UnreadFolder string

	// ReadFolder is the tablet folder finished documents are pulled from.
	// It ends with a slash.
	ReadFolder string

	// ScratchDir is the root of per-operation workspaces.
	ScratchDir string

	// PendingDir keeps rendered files that could not be uploaded back.
	PendingDir string

	// Workers bounds concurrent items during a push.
	Workers int
}

// SyncConfigFromSettings derives a SyncConfig from settings.
func SyncConfigFromSettings(s *domain.Settings) SyncConfig {
	return SyncConfig{
		UnreadFolder: s.Tablet.UnreadPath(),
		ReadFolder:   s.Tablet.ReadPath(),
		ScratchDir:   s.Paths.Scratch,
		PendingDir:   s.Paths.Pending,
		Workers:      s.Sync.Workers,
	}
}

// SyncOrchestrator drives items through the tag-encoded lifecycle.
// Tags are the only durable state: every pass re-derives what is due
// from them, so an interrupted pass is repaired by the next one.
type SyncOrchestrator struct {
	library  driven.LibraryClient
	tablet   driven.TabletClient
	renderer driven.Renderer
	backend  driven.AttachmentBackend
	history  driven.HistoryStore
	cfg      SyncConfig

	// Status tracking
	mu     sync.RWMutex
	active *domain.PassReport
}

// NewSyncOrchestrator creates a new sync orchestrator.
// history is optional; if nil, passes are not recorded.
func NewSyncOrchestrator(
	library driven.LibraryClient,
	tablet driven.TabletClient,
	renderer driven.Renderer,
	backend driven.AttachmentBackend,
	history driven.HistoryStore,
	cfg SyncConfig,
) *SyncOrchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &SyncOrchestrator{
		library:  library,
		tablet:   tablet,
		renderer: renderer,
		backend:  backend,
		history:  history,
		cfg:      cfg,
	}
}

// RunPass runs one pass in mode.
func (o *SyncOrchestrator) RunPass(ctx context.Context, mode domain.Mode) (*domain.PassReport, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: mode %q", domain.ErrInvalidInput, mode)
	}

	report, err := o.begin(mode)
	if err != nil {
		return nil, err
	}
	defer o.end()

	logger.Section(fmt.Sprintf("Sync pass %s (%s)", report.ID, mode))

	passErr := o.preflight(ctx)
	if passErr == nil {
		var errs []error
		if mode.Pushes() {
			if err := o.push(ctx, report); err != nil {
				errs = append(errs, fmt.Errorf("push: %w", err))
			}
		}
		if mode.Pulls() && unreachable(errors.Join(errs...)) == nil {
			if err := o.pull(ctx, report); err != nil {
				errs = append(errs, fmt.Errorf("pull: %w", err))
			}
		}
		passErr = errors.Join(errs...)
	}

	o.finish(ctx, report, passErr)
	return report, passErr
}

// UploadBack stores one rendered PDF against the attachment it matches.
func (o *SyncOrchestrator) UploadBack(ctx context.Context, pdfPath string) error {
	idx, err := o.indexSynced(ctx)
	if err != nil {
		return err
	}
	return o.uploadBack(ctx, pdfPath, idx)
}

// RetryPending re-runs upload-back for every PDF in the pending directory.
func (o *SyncOrchestrator) RetryPending(ctx context.Context) (*domain.PassReport, error) {
	report, err := o.begin(domain.ModePull)
	if err != nil {
		return nil, err
	}
	defer o.end()

	files, passErr := pendingPDFs(o.cfg.PendingDir)
	if passErr == nil && len(files) > 0 {
		logger.Info("Retrying %d pending file(s)", len(files))
		var idx *attachmentIndex
		idx, passErr = o.indexSynced(ctx)
		if passErr == nil {
			for _, path := range files {
				if ctx.Err() != nil {
					passErr = ctx.Err()
					break
				}
				report.AddProcessed()
				err := o.uploadBack(ctx, path, idx)
				o.recordUploadBack(report, "", filepath.Base(path), err)
				if passErr = unreachable(err); passErr != nil {
					break
				}
			}
		}
	}

	o.finish(ctx, report, passErr)
	return report, passErr
}

// SyncStatus returns the PDF filenames of items tagged read.
func (o *SyncOrchestrator) SyncStatus(ctx context.Context) ([]string, error) {
	items, err := o.library.ItemsByTag(ctx, domain.TagRead)
	if err != nil {
		return nil, fmt.Errorf("list read items: %w", err)
	}

	var names []string
	for _, item := range items {
		atts, err := o.library.ChildAttachments(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("attachments of %s: %w", item.ID, err)
		}
		for _, att := range atts {
			if att.IsPDF() {
				names = append(names, att.Filename)
			}
		}
	}
	return names, nil
}

// Status returns the progress of the running pass.
func (o *SyncOrchestrator) Status(_ context.Context) (*driving.PassStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.active == nil {
		return &driving.PassStatus{Running: false}, nil
	}

	processed, _, _, failed := o.active.Snapshot()
	return &driving.PassStatus{
		PassID:     o.active.ID,
		Mode:       o.active.Mode,
		Running:    true,
		Processed:  processed,
		ErrorCount: failed,
	}, nil
}

func (o *SyncOrchestrator) begin(mode domain.Mode) (*domain.PassReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPassInProgress, o.active.ID)
	}
	o.active = &domain.PassReport{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
	return o.active, nil
}

func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = nil
}

// finish stamps the report, logs its summary and records it.
func (o *SyncOrchestrator) finish(ctx context.Context, report *domain.PassReport, passErr error) {
	report.EndedAt = time.Now()
	processed, advanced, skipped, failed := report.Snapshot()

	if passErr != nil {
		logger.Error("Pass %s stopped: %v", report.ID, passErr)
	}
	logger.Info("Pass complete: %d processed, %d advanced, %d skipped, %d failed",
		processed, advanced, skipped, failed)

	if o.history == nil {
		return
	}
	// Record even when ctx is cancelled so aborted passes show up.
	if err := o.history.RecordPass(context.WithoutCancel(ctx), report.Record(passErr)); err != nil {
		logger.Warn("failed to record pass %s: %v", report.ID, err)
	}
}

// preflight aborts the pass early when a collaborator is down.
func (o *SyncOrchestrator) preflight(ctx context.Context) error {
	if err := o.tablet.Check(ctx); err != nil {
		return fmt.Errorf("pre-flight: tablet: %w", err)
	}
	if err := o.backend.Validate(ctx); err != nil {
		return fmt.Errorf("pre-flight: %s backend: %w", o.backend.Name(), err)
	}
	return nil
}

// --- Push: to_sync -> synced ---

func (o *SyncOrchestrator) push(ctx context.Context, report *domain.PassReport) error {
	items, err := o.library.ItemsByTag(ctx, domain.TagToSync)
	if err != nil {
		return fmt.Errorf("list %s items: %w", domain.TagToSync, err)
	}
	if len(items) == 0 {
		logger.Debug("no items tagged %s", domain.TagToSync)
		return nil
	}

	onTablet, err := o.tabletDocuments(ctx, o.cfg.UnreadFolder)
	if err != nil {
		return err
	}

	logger.Info("Pushing %d item(s) to %s", len(items), o.cfg.UnreadFolder)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for _, item := range items {
		g.Go(func() error {
			return o.pushItem(gctx, item, onTablet, report)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// tabletDocuments lists a tablet folder once per pass. A missing folder
// is treated as empty.
func (o *SyncOrchestrator) tabletDocuments(ctx context.Context, folder string) (map[string]bool, error) {
	names, err := o.tablet.ListFiles(ctx, folder)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("list tablet folder %s: %w", folder, err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// pushItem uploads every PDF of item and advances it when at least one
// reached the tablet. Attachments are handled sequentially. The returned
// error is non-nil only when a collaborator became unreachable.
func (o *SyncOrchestrator) pushItem(
	ctx context.Context,
	item domain.LibraryItem,
	onTablet map[string]bool,
	report *domain.PassReport,
) error {
	if ctx.Err() != nil {
		return nil
	}
	report.AddProcessed()

	action := domain.NextTransition(item.State(), domain.Signals{})
	if action.Kind != domain.ActionPush {
		report.AddSkipped()
		return nil
	}

	atts, err := o.library.ChildAttachments(ctx, item.ID)
	if err != nil {
		err = fmt.Errorf("list attachments: %w", err)
		o.fail(report, item.ID, item.DisplayName(), err)
		return unreachable(err)
	}

	var pdfs []domain.Attachment
	for _, att := range atts {
		if att.IsPDF() {
			pdfs = append(pdfs, att)
		}
	}
	if len(pdfs) == 0 {
		logger.Warn("item %s (%s) has no PDF attachments", item.ID, item.DisplayName())
		report.AddSkipped()
		return nil
	}

	var failed []string
	for _, att := range pdfs {
		if err := o.pushAttachment(ctx, att, onTablet); err != nil {
			failed = append(failed, att.Filename)
			o.fail(report, item.ID, att.Filename, err)
			if unreachable(err) != nil {
				return err
			}
		}
	}

	if len(failed) == len(pdfs) {
		logger.Warn("item %s left in %s: no attachment reached the tablet", item.ID, domain.TagToSync)
		return nil
	}
	if len(failed) > 0 {
		logger.Warn("%v", &domain.PartialSyncError{ItemID: item.ID, Failed: failed})
	}

	if err := o.commit(ctx, &item.Record, action.Delta); err != nil {
		err = fmt.Errorf("retag: %w", err)
		o.fail(report, item.ID, item.DisplayName(), err)
		return unreachable(err)
	}
	report.AddAdvanced()
	logger.Info("Synced %s (%d/%d PDFs)", item.DisplayName(), len(pdfs)-len(failed), len(pdfs))
	return nil
}

// pushAttachment copies one attachment to the tablet unless a document
// of the same name is already there.
func (o *SyncOrchestrator) pushAttachment(
	ctx context.Context,
	att domain.Attachment,
	onTablet map[string]bool,
) error {
	if onTablet[att.Stem()] {
		logger.Debug("%s already on tablet", att.Filename)
		return nil
	}

	ws, err := scratch.New(o.cfg.ScratchDir, att.ID)
	if err != nil {
		return err
	}
	defer ws.Release()

	local, err := o.backend.Fetch(ctx, att, ws.Dir())
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := o.tablet.UploadFile(ctx, local, o.cfg.UnreadFolder); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTabletUpload, err)
	}
	logger.Debug("uploaded %s to %s", att.Filename, o.cfg.UnreadFolder)
	return nil
}

// --- Pull: read on tablet -> rendered -> annotated ---

func (o *SyncOrchestrator) pull(ctx context.Context, report *domain.PassReport) error {
	entities, err := o.tablet.ListFiles(ctx, o.cfg.ReadFolder)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("list tablet folder %s: %w", o.cfg.ReadFolder, err)
	}
	if len(entities) == 0 {
		logger.Debug("nothing in %s", o.cfg.ReadFolder)
		return nil
	}

	idx, err := o.indexSynced(ctx)
	if err != nil {
		return err
	}

	logger.Info("Pulling %d document(s) from %s", len(entities), o.cfg.ReadFolder)
	for _, entity := range entities {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.pullEntity(ctx, entity, idx, report); err != nil {
			return err
		}
	}
	return nil
}

// pullEntity downloads and renders one tablet document, then uploads it
// back. A copy already waiting in the pending directory is uploaded instead
// of rendering again. The returned error is non-nil only when a
// collaborator became unreachable.
func (o *SyncOrchestrator) pullEntity(
	ctx context.Context,
	entity string,
	idx *attachmentIndex,
	report *domain.PassReport,
) error {
	report.AddProcessed()
	pdfName := entity + ".pdf"
	pending := filepath.Join(o.cfg.PendingDir, pdfName)

	m, matched := idx.lookup(pdfName)
	if !matched && fileExists(pending) {
		logger.Debug("%s already pending", pdfName)
		report.AddSkipped()
		return nil
	}
	if matched {
		action := domain.NextTransition(m.item.State(), domain.Signals{
			TabletRead:          true,
			AttachmentAnnotated: m.att.HasTag(domain.TagAnnotated),
		})
		if action.Skip != nil {
			logger.Debug("%s: %v", pdfName, action.Skip)
			report.AddSkipped()
			return nil
		}
		if fileExists(pending) {
			logger.Debug("uploading pending copy of %s", pdfName)
			err := o.uploadBack(ctx, pending, idx)
			o.recordUploadBack(report, m.item.ID, pdfName, err)
			return unreachable(err)
		}
	}

	ws, err := scratch.New(o.cfg.ScratchDir, entity)
	if err != nil {
		o.fail(report, m.item.ID, pdfName, err)
		return nil
	}
	defer ws.Release()

	rendered, err := o.render(ctx, entity, ws)
	if err != nil {
		o.fail(report, m.item.ID, pdfName, err)
		return unreachable(err)
	}

	err = o.uploadBack(ctx, rendered, idx)
	o.recordUploadBack(report, m.item.ID, pdfName, err)
	return unreachable(err)
}

// render downloads entity into ws and returns the canonical "<entity>.pdf".
// A companion export, if produced, is moved next to it.
func (o *SyncOrchestrator) render(ctx context.Context, entity string, ws *scratch.Workspace) (string, error) {
	archive, err := o.tablet.DownloadFile(ctx, o.cfg.ReadFolder+entity, ws.Dir())
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTabletDownload, err)
	}

	outDir, err := ws.Sub("rendered")
	if err != nil {
		return "", err
	}
	out, err := o.renderer.Render(ctx, entity, archive, outDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRender, err)
	}

	canonical := ws.Path(entity + ".pdf")
	if err := os.Rename(out, canonical); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	export := filepath.Join(outDir, domain.ExportName(canonical))
	if fileExists(export) {
		if err := os.Rename(export, ws.Path(domain.ExportName(canonical))); err != nil {
			logger.Warn("could not keep export %s: %v", filepath.Base(export), err)
		}
	}
	return canonical, nil
}

// uploadBack stores the rendered PDF at pdfPath, named "(Annotated) <name>",
// under the item owning the attachment called <name>, then tags that
// attachment annotated. The file is removed on success. On failure it is
// kept in the pending directory under its original name.
func (o *SyncOrchestrator) uploadBack(ctx context.Context, pdfPath string, idx *attachmentIndex) error {
	name := filepath.Base(pdfPath)
	export := filepath.Join(filepath.Dir(pdfPath), domain.ExportName(name))

	m, ok := idx.lookup(name)
	if !ok {
		o.keepPending(pdfPath, export)
		return fmt.Errorf("%s: %w", name, domain.ErrNoMatch)
	}

	action := domain.NextTransition(m.item.State(), domain.Signals{
		AnnotatedFileReady:  true,
		AttachmentAnnotated: m.att.HasTag(domain.TagAnnotated),
	})
	if action.Skip != nil {
		return fmt.Errorf("%s: %w", name, action.Skip)
	}
	if action.Kind != domain.ActionUploadBack {
		o.keepPending(pdfPath, export)
		return fmt.Errorf("%s: item %s is %s, not ready for upload-back", name, m.item.ID, m.item.State())
	}

	ws, err := scratch.New(o.cfg.ScratchDir, m.att.ID)
	if err != nil {
		o.keepPending(pdfPath, export)
		return err
	}
	defer ws.Release()

	annotated, err := ws.Import(pdfPath, domain.AnnotatedName(name))
	if err != nil {
		o.keepPending(pdfPath, export)
		return err
	}
	paths := []string{annotated}
	if fileExists(export) {
		if p, err := ws.Import(export, filepath.Base(export)); err == nil {
			paths = append(paths, p)
		} else {
			logger.Warn("skipping export %s: %v", filepath.Base(export), err)
		}
	}

	if _, err := o.backend.Store(ctx, paths, m.item.ID); err != nil {
		o.keepPending(pdfPath, export)
		return fmt.Errorf("store %s: %w", filepath.Base(annotated), err)
	}

	rec := m.att.Record
	if err := o.commit(ctx, &rec, action.Delta); err != nil {
		o.keepPending(pdfPath, export)
		return fmt.Errorf("tag %s %s: %w", name, domain.TagAnnotated, err)
	}
	idx.update(name, rec)

	o.discard(pdfPath, export,
		filepath.Join(o.cfg.PendingDir, name), filepath.Join(o.cfg.PendingDir, domain.ExportName(name)))
	logger.Info("Uploaded %s to %s via %s", filepath.Base(annotated), m.item.DisplayName(), o.backend.Name())
	return nil
}

// recordUploadBack files an upload-back outcome in the report.
func (o *SyncOrchestrator) recordUploadBack(report *domain.PassReport, itemID, name string, err error) {
	switch {
	case err == nil:
		report.AddAdvanced()
	case errors.Is(err, domain.ErrAlreadyAnnotated):
		logger.Warn("%v", err)
		report.AddSkipped()
	default:
		o.fail(report, itemID, name, err)
	}
}

// keepPending moves files into the pending directory unless they are
// already there. Missing files are ignored.
func (o *SyncOrchestrator) keepPending(paths ...string) {
	for _, p := range paths {
		if !fileExists(p) || filepath.Clean(filepath.Dir(p)) == filepath.Clean(o.cfg.PendingDir) {
			continue
		}
		dst, err := scratch.Keep(p, o.cfg.PendingDir, filepath.Base(p))
		if err != nil {
			logger.Error("could not keep %s: %v", p, err)
			continue
		}
		logger.Warn("kept %s for inspection", dst)
	}
}

// discard removes uploaded files, including stale copies of them left in
// the pending directory by an earlier failure.
func (o *SyncOrchestrator) discard(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("could not remove %s: %v", p, err)
		}
	}
}

// unreachable returns err when it means a collaborator is gone for the
// rest of the pass, and nil otherwise.
func unreachable(err error) error {
	if errors.Is(err, domain.ErrUnreachable) {
		return err
	}
	return nil
}

// commit persists a tag delta on rec.
func (o *SyncOrchestrator) commit(ctx context.Context, rec *domain.Record, delta domain.TagDelta) error {
	if len(delta.Add) > 0 {
		if err := o.library.AddTags(ctx, rec, delta.Add...); err != nil {
			return err
		}
	}
	if len(delta.Remove) > 0 {
		if err := o.library.RemoveTags(ctx, rec, delta.Remove...); err != nil {
			return err
		}
	}
	return nil
}

func (o *SyncOrchestrator) fail(report *domain.PassReport, itemID, name string, err error) {
	f := domain.Failure{ItemID: itemID, Name: name, Err: err}
	report.AddFailure(f)
	logger.Warn("%s", f)
}

// --- Attachment matching ---

type match struct {
	item domain.LibraryItem
	att  domain.Attachment
}

// attachmentIndex maps attachment filenames of synced items to their
// owners. The first attachment seen for a name wins.
type attachmentIndex struct {
	mu     sync.Mutex
	byName map[string]match
}

func (x *attachmentIndex) lookup(name string) (match, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	m, ok := x.byName[name]
	return m, ok
}

func (x *attachmentIndex) update(name string, rec domain.Record) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if m, ok := x.byName[name]; ok {
		m.att.Record = rec
		x.byName[name] = m
	}
}

// indexSynced builds the filename index over items tagged synced.
func (o *SyncOrchestrator) indexSynced(ctx context.Context) (*attachmentIndex, error) {
	items, err := o.library.ItemsByTag(ctx, domain.TagSynced)
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", domain.TagSynced, err)
	}

	idx := &attachmentIndex{byName: make(map[string]match)}
	for _, item := range items {
		atts, err := o.library.ChildAttachments(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("attachments of %s: %w", item.ID, err)
		}
		for _, att := range atts {
			if _, seen := idx.byName[att.Filename]; !seen {
				idx.byName[att.Filename] = match{item: item, att: att}
			}
		}
	}
	return idx, nil
}

// pendingPDFs lists PDFs in dir, sorted. A missing dir has none.
func pendingPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pending dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
