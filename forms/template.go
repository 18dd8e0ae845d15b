/*
template.go - Template and version lifecycle

PURPOSE:
  Templates own an ordered sequence of versions; versions own entity
  definitions. Versions are draft-then-published, and a version becomes
  permanently immutable once any submission references it.

INVARIANTS ENFORCED HERE:
  - Version numbers are dense per template: max(existing)+1, never
    reused, never renumbered
  - Entities attach only to draft versions with no submissions
  - Publish is idempotent and terminal for edits

The in-use guard and the numbering both run inside WithTx so a
concurrent createSubmission cannot race an addEntity.

SEE ALSO:
  - generator.go: Builds template+version from the system-type catalog
  - submission.go: Marks versions in use by referencing them
*/
package forms

import (
	"context"
)

// CreateTemplate creates a template with no versions.
func (e *Engine) CreateTemplate(ctx context.Context, in TemplateInput) (Template, error) {
	t := Template{
		ID:           TemplateID(newID()),
		Name:         in.Name,
		Description:  in.Description,
		Organization: in.Organization,
		CreatedAt:    now(),
	}
	if err := e.store.InsertTemplate(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

// ListTemplates returns an organization's templates.
func (e *Engine) ListTemplates(ctx context.Context, organization string) ([]Template, error) {
	return e.store.ListTemplates(ctx, organization)
}

// GetTemplate returns one template.
func (e *Engine) GetTemplate(ctx context.Context, id TemplateID) (Template, error) {
	return e.store.GetTemplate(ctx, id)
}

// ListVersions returns a template's versions in version-number order.
func (e *Engine) ListVersions(ctx context.Context, templateID TemplateID) ([]Version, error) {
	return e.store.ListVersions(ctx, templateID)
}

// GetVersion returns one version with its entities.
func (e *Engine) GetVersion(ctx context.Context, id VersionID) (Version, error) {
	return e.store.GetVersion(ctx, id)
}

// CreateVersion appends a draft version to a template. The version number
// is assigned inside the transaction so interleaved calls still produce
// the dense sequence 1, 2, 3, ...
func (e *Engine) CreateVersion(ctx context.Context, templateID TemplateID, in VersionInput) (Version, error) {
	var v Version
	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetTemplate(ctx, templateID); err != nil {
			return err
		}
		max, err := s.MaxVersionNumber(ctx, templateID)
		if err != nil {
			return err
		}
		v = Version{
			ID:             VersionID(newID()),
			TemplateID:     templateID,
			Number:         max + 1,
			Title:          in.Title,
			Notes:          in.Notes,
			Status:         VersionDraft,
			SystemTypeCode: in.SystemTypeCode,
		}
		return s.InsertVersion(ctx, v)
	})
	if err != nil {
		return Version{}, err
	}
	return v, nil
}

// AddEntity appends an entity definition to a draft version. Fails with
// ErrVersionPublished on a published version and ErrVersionInUse once any
// submission references the version, both checked transactionally.
func (e *Engine) AddEntity(ctx context.Context, versionID VersionID, in EntityInput) (EntityTemplate, error) {
	var entity EntityTemplate
	err := e.store.WithTx(ctx, func(s Store) error {
		v, err := s.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if v.Status == VersionPublished {
			return ErrVersionPublished
		}
		n, err := s.CountSubmissionsForVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrVersionInUse
		}
		entity = newEntityTemplate(versionID, in)
		return s.InsertEntity(ctx, entity)
	})
	if err != nil {
		return EntityTemplate{}, err
	}
	return entity, nil
}

// PublishVersion marks a version published. Idempotent: publishing a
// published version returns the current record unchanged.
func (e *Engine) PublishVersion(ctx context.Context, versionID VersionID) (Version, error) {
	var v Version
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		v, err = s.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if v.Status == VersionPublished {
			return nil
		}
		at := now()
		if err := s.SetVersionStatus(ctx, versionID, VersionPublished, &at); err != nil {
			return err
		}
		v.Status = VersionPublished
		v.PublishedAt = &at
		return nil
	})
	if err != nil {
		return Version{}, err
	}
	return v, nil
}

// newEntityTemplate builds the stored entity from its input, assigning
// IDs to the entity and each field. SortOrder is caller-provided.
func newEntityTemplate(versionID VersionID, in EntityInput) EntityTemplate {
	fields := make([]Field, len(in.Fields))
	for i, f := range in.Fields {
		fields[i] = Field{
			ID:       FieldID(newID()),
			Label:    f.Label,
			Type:     f.Type,
			Required: f.Required,
			Options:  f.Options,
		}
	}
	return EntityTemplate{
		ID:             EntityID(newID()),
		VersionID:      versionID,
		Title:          in.Title,
		Description:    in.Description,
		SortOrder:      in.SortOrder,
		Fields:         fields,
		RepeatPerAsset: in.RepeatPerAsset,
	}
}
