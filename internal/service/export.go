package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"preflight/internal/model"
	"preflight/internal/storage"
)

// contextSource marks a preflight context supplied at export time rather
// than attached by the requester.
const contextSource = "preflight"

// Export builds the payload for the selected requests. Attached contexts are
// passed through unchanged; requests without one get the document's current
// gate color and unresolved findings when IncludeContext is set.
func (s *preflightService) Export(ctx context.Context, in ExportInput) (_ *model.ExportPayload, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.Export")
	defer func() { endSpan(span, err) }()

	seen := make(map[string]bool, len(in.RequestIDs))
	ids := make([]string, 0, len(in.RequestIDs))
	for _, id := range in.RequestIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoRequestIDs
	}

	reqs, err := s.store.Requests.FindByIDs(ctx, ids)
	if err != nil {
		return nil, persistence("read requests", err)
	}

	found := make(map[string]bool, len(reqs))
	supplied := make(map[string]json.RawMessage)
	entries := make([]model.ExportEntry, 0, len(reqs))
	for _, rr := range reqs {
		found[rr.ID] = true
		e := model.ExportEntry{
			RequestID:  rr.ID,
			DocumentID: rr.DocumentID,
			Question:   rr.Question,
			CreatedAt:  rr.CreatedAt,
		}
		if in.IncludeContext {
			if len(rr.PreflightContext) > 0 {
				e.PreflightContext = rr.PreflightContext
			} else {
				pc, ok := supplied[rr.DocumentID]
				if !ok {
					pc, err = s.currentContext(ctx, rr.DocumentID)
					if err != nil {
						return nil, err
					}
					supplied[rr.DocumentID] = pc
				}
				e.PreflightContext = pc
			}
		}
		entries = append(entries, e)
	}

	payload := &model.ExportPayload{
		ExportID:    uuid.NewString(),
		GeneratedAt: s.now(),
		Entries:     entries,
	}
	for _, id := range ids {
		if !found[id] {
			payload.MissingRequestIDs = append(payload.MissingRequestIDs, id)
		}
	}

	if s.objects != nil {
		if err := s.upload(ctx, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func (s *preflightService) currentContext(ctx context.Context, documentID string) (json.RawMessage, error) {
	snap, err := s.snapshot(ctx, documentID)
	if err != nil {
		return nil, err
	}
	eval := s.evaluate(snap)
	pc := model.PreflightContext{
		Source:    contextSource,
		GateColor: eval.GateColor,
		Findings:  make([]model.Finding, 0),
	}
	for _, f := range snap.Findings {
		if f.Unresolved() {
			pc.Findings = append(pc.Findings, f)
		}
	}
	b, err := json.Marshal(pc)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// upload stores the payload and attaches a presigned URL. A payload that
// cannot be linked is removed again.
func (s *preflightService) upload(ctx context.Context, payload *model.ExportPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	key := storage.ExportKey(payload.ExportID)
	if _, err := s.objects.Put(ctx, key, bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata: map[string]string{
			"export-id": payload.ExportID,
			"entries":   strconv.Itoa(len(payload.Entries)),
		},
	}); err != nil {
		return persistence("upload export", err)
	}
	url, err := s.objects.PresignGet(ctx, key, s.expiry)
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			return persistence("presign export", errors.Join(err, delErr))
		}
		return persistence("presign export", err)
	}
	payload.DownloadURL = url
	return nil
}

func (s *preflightService) OpenExport(ctx context.Context, exportID string) (io.ReadCloser, error) {
	if _, err := uuid.Parse(exportID); err != nil {
		return nil, ErrInvalidExportID
	}
	if s.objects == nil {
		return nil, ErrExportNotFound
	}
	rc, _, err := s.objects.Get(ctx, storage.ExportKey(exportID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, persistence("read export", err)
	}
	return rc, nil
}
