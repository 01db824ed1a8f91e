// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package registry

import (
	"context"
	"testing"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/models"
)

// runStoreSuite exercises the Store contract. Every implementation runs it.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create and find", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, &models.DoiRecord{
			Prefix: "10.1000", Suffix: "envidat.1", SubjectID: "ds-1", SubjectName: "alpine-snow",
			Metadata: `{"id":"ds-1"}`,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID == 0 || created.CreatedAt.IsZero() {
			t.Errorf("Create() did not set ID/timestamps: %+v", created)
		}
		if created.OriginSite != models.DefaultOriginSite || created.EntityKind != models.EntityPackage {
			t.Errorf("defaults not applied: %+v", created)
		}

		got, err := s.FindByPrefixSuffix(ctx, "10.1000", "envidat.1")
		if err != nil {
			t.Fatalf("FindByPrefixSuffix() error = %v", err)
		}
		if got.SubjectID != "ds-1" || got.Metadata != `{"id":"ds-1"}` || got.DOI() != "10.1000/envidat.1" {
			t.Errorf("unexpected record: %+v", got)
		}

		bySubject, err := s.FindBySubject(ctx, "ds-1")
		if err != nil || bySubject.Suffix != "envidat.1" {
			t.Errorf("FindBySubject() = %+v, %v", bySubject, err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByPrefixSuffix(context.Background(), "10.1000", "nope")
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("err kind = %q, want NOT_FOUND", apperr.KindOf(err))
		}
		_, err = s.FindBySubject(context.Background(), "missing")
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("err kind = %q, want NOT_FOUND", apperr.KindOf(err))
		}
	})

	t.Run("duplicate is conflict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := &models.DoiRecord{Prefix: "10.1000", Suffix: "envidat.5", SubjectID: "a", SubjectName: "a"}
		if _, err := s.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
		_, err := s.Create(ctx, &models.DoiRecord{Prefix: "10.1000", Suffix: "envidat.5", SubjectID: "b", SubjectName: "b"})
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("err = %v, want CONFLICT", err)
		}
	})

	t.Run("next suffix number", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.NextSuffixNumber(ctx, "10.1000", "envidat.")
		if err != nil || n != 1 {
			t.Fatalf("empty registry: NextSuffixNumber() = %d, %v; want 1", n, err)
		}

		for i, suffix := range []string{"envidat.3", "envidat.12", "envidat.legacy", "other.99"} {
			_, err := s.Create(ctx, &models.DoiRecord{Prefix: "10.1000", Suffix: suffix, SubjectID: "s", SubjectName: string(rune('a' + i))})
			if err != nil {
				t.Fatal(err)
			}
		}
		// Same suffix under another prefix must not count.
		if _, err := s.Create(ctx, &models.DoiRecord{Prefix: "10.2000", Suffix: "envidat.500", SubjectID: "s", SubjectName: "z"}); err != nil {
			t.Fatal(err)
		}

		n, err = s.NextSuffixNumber(ctx, "10.1000", "envidat.")
		if err != nil || n != 13 {
			t.Errorf("NextSuffixNumber() = %d, %v; want 13", n, err)
		}
	})

	t.Run("update metadata and delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Create(ctx, &models.DoiRecord{Prefix: "10.1000", Suffix: "envidat.2", SubjectID: "x", SubjectName: "x"}); err != nil {
			t.Fatal(err)
		}
		if err := s.UpdateMetadata(ctx, "10.1000", "envidat.2", `{"v":2}`); err != nil {
			t.Fatalf("UpdateMetadata() error = %v", err)
		}
		got, _ := s.FindByPrefixSuffix(ctx, "10.1000", "envidat.2")
		if got.Metadata != `{"v":2}` {
			t.Errorf("Metadata = %q", got.Metadata)
		}
		if err := s.UpdateMetadata(ctx, "10.1000", "missing", "{}"); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("UpdateMetadata(missing) = %v, want NOT_FOUND", err)
		}

		n, err := s.Delete(ctx, "10.1000", "envidat.2")
		if err != nil || n != 1 {
			t.Errorf("Delete() = %d, %v; want 1", n, err)
		}
		n, err = s.Delete(ctx, "10.1000", "envidat.2")
		if err != nil || n != 0 {
			t.Errorf("second Delete() = %d, %v; want 0", n, err)
		}
	})

	t.Run("list with filter and pagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 1; i <= 5; i++ {
			prefix := "10.1000"
			if i%2 == 0 {
				prefix = "10.2000"
			}
			if _, err := s.Create(ctx, &models.DoiRecord{Prefix: prefix, Suffix: FormatSuffix("envidat.", i), SubjectID: "s", SubjectName: "n"}); err != nil {
				t.Fatal(err)
			}
		}

		all, err := s.List(ctx, ListFilter{})
		if err != nil || len(all) != 5 {
			t.Fatalf("List() = %d records, %v", len(all), err)
		}
		filtered, _ := s.List(ctx, ListFilter{Prefix: "10.1000"})
		if len(filtered) != 3 {
			t.Errorf("List(prefix) = %d records, want 3", len(filtered))
		}
		page, _ := s.List(ctx, ListFilter{Limit: 2, Offset: 4})
		if len(page) != 1 || page[0].Suffix != "envidat.5" {
			t.Errorf("List(page) = %+v", page)
		}
	})

	t.Run("prefix CRUD", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p, err := s.CreatePrefix(ctx, &models.DoiPrefix{Prefix: "10.16904", Description: "EnviDat"})
		if err != nil || p.ID == 0 {
			t.Fatalf("CreatePrefix() = %+v, %v", p, err)
		}
		if _, err := s.CreatePrefix(ctx, &models.DoiPrefix{Prefix: "10.16904"}); apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("duplicate CreatePrefix() = %v, want CONFLICT", err)
		}
		if _, err := s.CreatePrefix(ctx, &models.DoiPrefix{Prefix: "10.1000"}); err != nil {
			t.Fatal(err)
		}

		list, err := s.ListPrefixes(ctx)
		if err != nil || len(list) != 2 || list[0].Prefix != "10.1000" {
			t.Errorf("ListPrefixes() = %+v, %v", list, err)
		}

		got, err := s.GetPrefix(ctx, "10.16904")
		if err != nil || got.Description != "EnviDat" {
			t.Errorf("GetPrefix() = %+v, %v", got, err)
		}
		if _, err := s.GetPrefix(ctx, "10.9"); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("GetPrefix(missing) = %v", err)
		}

		n, err := s.DeletePrefix(ctx, "10.16904")
		if err != nil || n != 1 {
			t.Errorf("DeletePrefix() = %d, %v", n, err)
		}
	})

	t.Run("mint allocates sequential suffixes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for want := 1; want <= 3; want++ {
			rec, err := Mint(ctx, s, models.DoiRecord{Prefix: "10.1000", Tag: "envidat.", SubjectID: "s", SubjectName: "n"}, 0)
			if err != nil {
				t.Fatalf("Mint() error = %v", err)
			}
			if rec.Suffix != FormatSuffix("envidat.", want) {
				t.Errorf("Mint() suffix = %q, want envidat.%d", rec.Suffix, want)
			}
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
