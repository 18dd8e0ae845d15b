/*
generator.go - Template generation from the system-type catalog

PURPOSE:
  Builds a template plus draft version for a system-type code, seeding
  the organization-scoped system type registry from the shared catalog on
  first use. The generated version stays in draft; publishing is a
  separate, explicit step.

DUPLICATE GUARD:
  Catalog entity lists have historically carried duplicate titles; the
  generator adds an entity only if no entity with the same title is
  already on the version.

SEE ALSO:
  - catalog package: The shared built-in catalog definitions
  - template.go: The lifecycle the generated records enter
*/
package forms

import (
	"context"
	"sort"
)

// ListSystemTypes seeds the organization's registry from the shared
// catalog if needed and returns it, ordered by code.
func (e *Engine) ListSystemTypes(ctx context.Context, organization string) ([]SystemType, error) {
	if err := e.seedSystemTypes(ctx, e.store, organization); err != nil {
		return nil, err
	}
	types, err := e.store.ListSystemTypes(ctx, organization)
	if err != nil {
		return nil, err
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Code < types[j].Code })
	return types, nil
}

// ListSystemTypeEntities returns the shared catalog's ordered
// required-entity definitions for a code.
func (e *Engine) ListSystemTypeEntities(ctx context.Context, code string) ([]EntityInput, error) {
	def, ok := e.catalog[code]
	if !ok {
		return nil, ErrSystemTypeNotFound
	}
	return def.Entities, nil
}

// GenerateFromSystemType creates a template and a draft version carrying
// the catalog's required entities for code. Fails with
// ErrSystemTypeNotFound for a code the catalog does not know.
func (e *Engine) GenerateFromSystemType(ctx context.Context, code, templateName, organization string) (Template, Version, error) {
	def, ok := e.catalog[code]
	if !ok {
		return Template{}, Version{}, ErrSystemTypeNotFound
	}

	var (
		tpl Template
		v   Version
	)
	err := e.store.WithTx(ctx, func(s Store) error {
		if err := e.seedSystemTypes(ctx, s, organization); err != nil {
			return err
		}
		st, err := s.GetSystemType(ctx, organization, code)
		if err != nil {
			return err
		}

		tpl = Template{
			ID:           TemplateID(newID()),
			Name:         templateName,
			Description:  "Generated from system type " + st.Code,
			Organization: organization,
			CreatedAt:    now(),
		}
		if err := s.InsertTemplate(ctx, tpl); err != nil {
			return err
		}

		v = Version{
			ID:             VersionID(newID()),
			TemplateID:     tpl.ID,
			Number:         1,
			Title:          st.Name,
			Status:         VersionDraft,
			SystemTypeCode: st.Code,
		}
		if err := s.InsertVersion(ctx, v); err != nil {
			return err
		}

		// Add required entities in catalog order, skipping duplicate titles.
		seen := make(map[string]bool)
		for _, in := range def.Entities {
			if seen[in.Title] {
				continue
			}
			seen[in.Title] = true
			entity := newEntityTemplate(v.ID, in)
			if err := s.InsertEntity(ctx, entity); err != nil {
				return err
			}
			v.Entities = append(v.Entities, entity)
		}
		return nil
	})
	if err != nil {
		return Template{}, Version{}, err
	}
	return tpl, v, nil
}

// seedSystemTypes upserts the shared catalog into an organization's
// registry. Idempotent, so concurrent first use cannot duplicate entries.
func (e *Engine) seedSystemTypes(ctx context.Context, s Store, organization string) error {
	for _, def := range e.catalog {
		st := SystemType{
			ID:           newID(),
			Organization: organization,
			Code:         def.Code,
			Name:         def.Name,
		}
		if err := s.UpsertSystemType(ctx, st); err != nil {
			return err
		}
	}
	return nil
}
