package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"rekam/internal/identity"
	"rekam/internal/submission/metrics"
	"rekam/internal/submission/models"
	"rekam/internal/submission/service"
	"rekam/internal/submission/store"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
	audit "rekam/pkg/platform/audit"
	"rekam/pkg/platform/audit/publisher"
	auditmemory "rekam/pkg/platform/audit/store/memory"
	"rekam/pkg/requestcontext"
)

var now = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *service.Service

	alice identity.Actor
	bob   identity.Actor
	admin identity.Actor
	super identity.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func newActor(role identity.Role, name, nik string) identity.Actor {
	return identity.Actor{ID: id.UserID(uuid.New()), Role: role, Name: name, NIK: nik}
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.store = store.NewInMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()

	svc, err := service.New(s.store,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())),
		service.WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc

	s.alice = newActor(identity.RoleUser, "Alice", "3201010101010001")
	s.bob = newActor(identity.RoleUser, "Bob", "3201010101010002")
	s.admin = newActor(identity.RoleAdmin, "Admin", "3201010101010003")
	s.super = newActor(identity.RoleSuperuser, "Super", "3201010101010004")
}

func bulkPayload(name string) models.Payload {
	return models.Payload{
		"subject_nik":  "3275010101010001",
		"subject_name": name,
		"reason":       models.ReasonOneToMany,
	}
}

func (s *ServiceSuite) create(actor identity.Actor, name string) *models.Submission {
	sub, err := s.service.Create(s.ctx, models.CategoryMonthlyBulk, bulkPayload(name), actor)
	s.Require().NoError(err)
	return sub
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func (s *ServiceSuite) requireField(err error, field string) {
	s.Require().Error(err)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeValidation, de.Code)
	s.Equal(field, de.Field)
}

func (s *ServiceSuite) auditActions(userID id.UserID) []string {
	events, err := s.auditStore.ListByUser(context.Background(), userID, 0)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *ServiceSuite) TestNewRequiresStore() {
	_, err := service.New(nil)
	s.Error(err)
}

func (s *ServiceSuite) TestCreate() {
	s.Run("stores a pending submission owned by the caller", func() {
		sub := s.create(s.alice, "Siti Aminah")

		s.False(sub.ID.IsNil())
		s.Equal(s.alice.ID, sub.OwnerID)
		s.Equal("Alice", sub.SubmitterName)
		s.Equal(s.alice.NIK, sub.SubmitterNIK)
		s.True(now.Equal(sub.SubmittedAt))
		s.False(sub.ReadyForRecording)
		s.Nil(sub.ScheduledDate)
		s.Equal("2025-03-10", sub.Payload["submitted_on"], "empty default-today date is filled")

		got, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
		s.Require().NoError(err)
		s.Equal(sub.Payload, got.Payload)
		s.Contains(s.auditActions(s.alice.ID), string(audit.EventSubmissionCreated))
	})

	s.Run("unknown category", func() {
		_, err := s.service.Create(s.ctx, "parking-tickets", bulkPayload("x"), s.alice)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("unauthenticated caller", func() {
		_, err := s.service.Create(s.ctx, models.CategoryMonthlyBulk, bulkPayload("x"), identity.Actor{})
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("caller profile without a valid NIK", func() {
		actor := newActor(identity.RoleUser, "No NIK", "")
		_, err := s.service.Create(s.ctx, models.CategoryMonthlyBulk, bulkPayload("x"), actor)
		s.requireField(err, "submitter_nik")
	})
}

func (s *ServiceSuite) TestCreateValidation() {
	cases := []struct {
		name  string
		cat   string
		in    models.Payload
		field string
	}{
		{"15 digit NIK", models.CategoryMonthlyBulk, models.Payload{"subject_nik": "327501010101000", "subject_name": "A", "reason": models.ReasonOneToMany}, "subject_nik"},
		{"NIK with a letter", models.CategoryMonthlyBulk, models.Payload{"subject_nik": "327501010101000A", "subject_name": "A", "reason": models.ReasonOneToMany}, "subject_nik"},
		{"missing name", models.CategoryMonthlyBulk, models.Payload{"subject_nik": "3275010101010001", "reason": models.ReasonOneToMany}, "subject_name"},
		{"unknown reason", models.CategoryMonthlyBulk, models.Payload{"subject_nik": "3275010101010001", "subject_name": "A", "reason": "BORED"}, "reason"},
		{"other reason without text", models.CategoryMonthlyBulk, models.Payload{"subject_nik": "3275010101010001", "subject_name": "A", "reason": models.ReasonOther}, "other_reason"},
		{"impossible date", models.CategoryMonthlyBulk, models.Payload{"subject_nik": "3275010101010001", "subject_name": "A", "reason": models.ReasonOneToMany, "submitted_on": "2024-02-30"}, "submitted_on"},
		{"future recording date", models.CategoryDuplicateOperator, models.Payload{
			"duplicate_nik": "3275010101010001", "duplicate_name": "A",
			"operator_nik": "3275010101010002", "operator_name": "B",
			"recorded_on": "2025-03-11",
		}, "recorded_on"},
		{"unknown exception type", models.CategoryAdjudication, models.Payload{"subject_nik": "3275010101010001", "subject_name": "A", "exception_type": "FACE"}, "exception_type"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Create(s.ctx, tc.cat, tc.in, s.alice)
			s.requireField(err, tc.field)
		})
	}

	page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, s.admin, models.ListParams{})
	s.Require().NoError(err)
	s.Zero(page.TotalCount, "nothing is written when validation fails")
}

func (s *ServiceSuite) TestCreatePayloadNormalisation() {
	s.Run("recording date today is accepted", func() {
		sub, err := s.service.Create(s.ctx, models.CategoryDuplicateOperator, models.Payload{
			"duplicate_nik": "3275010101010001", "duplicate_name": " A ",
			"operator_nik": "3275010101010002", "operator_name": "B",
			"recorded_on": "2025-03-10",
		}, s.alice)
		s.Require().NoError(err)
		s.Equal("A", sub.Payload["duplicate_name"])
	})

	s.Run("other reason is kept only for OTHER", func() {
		in := bulkPayload("A")
		in["reason"] = models.ReasonOther
		in["other_reason"] = "moved abroad"
		sub, err := s.service.Create(s.ctx, models.CategoryMonthlyBulk, in, s.alice)
		s.Require().NoError(err)
		s.Equal("moved abroad", sub.Payload["other_reason"])

		in = bulkPayload("A")
		in["other_reason"] = "ignored"
		sub, err = s.service.Create(s.ctx, models.CategoryMonthlyBulk, in, s.alice)
		s.Require().NoError(err)
		s.Empty(sub.Payload["other_reason"])
	})

	s.Run("undeclared keys are dropped", func() {
		in := bulkPayload("A")
		in["ready_for_recording"] = "true"
		sub, err := s.service.Create(s.ctx, models.CategoryMonthlyBulk, in, s.alice)
		s.Require().NoError(err)
		s.NotContains(sub.Payload, "ready_for_recording")
		s.False(sub.ReadyForRecording)
	})
}

func (s *ServiceSuite) TestOwnershipIsolation() {
	sub := s.create(s.alice, "Siti")

	s.Run("another user cannot read it", func() {
		_, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.bob)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("another user cannot edit it", func() {
		_, err := s.service.Edit(s.ctx, models.CategoryMonthlyBulk, sub.ID, bulkPayload("Hijacked"), s.bob)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("another user cannot delete it", func() {
		err := s.service.Delete(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.bob)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("admin has no edit override", func() {
		_, err := s.service.Edit(s.ctx, models.CategoryMonthlyBulk, sub.ID, bulkPayload("Hijacked"), s.admin)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	got, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
	s.Require().NoError(err)
	s.Equal("Siti", got.Payload["subject_name"])

	s.Run("missing and foreign look the same", func() {
		_, errMissing := s.service.Get(s.ctx, models.CategoryMonthlyBulk, id.NewSubmissionID(), s.bob)
		_, errForeign := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.bob)
		s.Equal(errMissing.Error(), errForeign.Error())
	})
}

func (s *ServiceSuite) TestEditAndDelete() {
	sub := s.create(s.alice, "Siti")

	edited, err := s.service.Edit(s.ctx, models.CategoryMonthlyBulk, sub.ID, bulkPayload("Siti Aminah"), s.alice)
	s.Require().NoError(err)
	s.Equal("Siti Aminah", edited.Payload["subject_name"])
	s.True(sub.SubmittedAt.Equal(edited.SubmittedAt))

	s.Require().NoError(s.service.Delete(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice))
	_, err = s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
	s.requireCode(err, dErrors.CodeNotFound)

	s.Equal([]string{
		string(audit.EventSubmissionDeleted),
		string(audit.EventSubmissionEdited),
		string(audit.EventSubmissionCreated),
	}, s.auditActions(s.alice.ID))
}

func (s *ServiceSuite) TestEditKeepsDefaultTodayDate() {
	sub := s.create(s.alice, "Siti")
	later := requestcontext.WithTime(context.Background(), now.Add(72*time.Hour))

	edited, err := s.service.Edit(later, models.CategoryMonthlyBulk, sub.ID, bulkPayload("Siti"), s.alice)
	s.Require().NoError(err)
	s.Equal("2025-03-10", edited.Payload["submitted_on"])
}

func (s *ServiceSuite) TestListScopeAndPagination() {
	for i := range 12 {
		s.create(s.alice, fmt.Sprintf("alice-%02d", i))
	}
	s.create(s.bob, "bob-00")

	s.Run("user sees only their own", func() {
		page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, s.bob, models.ListParams{})
		s.Require().NoError(err)
		s.Equal(1, page.TotalCount)
		s.Equal("bob-00", page.Rows[0].Payload["subject_name"])
	})

	s.Run("privileged roles see every owner", func() {
		for _, actor := range []identity.Actor{s.admin, s.super} {
			page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, actor, models.ListParams{})
			s.Require().NoError(err)
			s.Equal(13, page.TotalCount)
		}
	})

	s.Run("pages", func() {
		page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, s.alice, models.ListParams{Page: 1})
		s.Require().NoError(err)
		s.Equal(service.DefaultPageSize, page.PageSize)
		s.Equal(12, page.TotalCount)
		s.Equal(3, page.TotalPages)
		s.Len(page.Rows, 5)
		s.Equal("alice-11", page.Rows[0].Payload["subject_name"], "newest first")

		page, err = s.service.List(s.ctx, models.CategoryMonthlyBulk, s.alice, models.ListParams{Page: 3})
		s.Require().NoError(err)
		s.Len(page.Rows, 2)
		s.Equal("alice-00", page.Rows[1].Payload["subject_name"])
	})

	s.Run("page past the end is empty with the real total", func() {
		page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, s.alice, models.ListParams{Page: 9})
		s.Require().NoError(err)
		s.NotNil(page.Rows)
		s.Empty(page.Rows)
		s.Equal(12, page.TotalCount)
	})

	s.Run("walking every page visits each row once", func() {
		cases := []struct {
			actor  identity.Actor
			search string
			total  int
		}{
			{s.admin, "", 13},
			{s.alice, "", 12},
			{s.admin, "alice-1", 2},
			{s.super, "ALICE", 12},
		}
		for _, tc := range cases {
			for _, size := range []int{1, 4, 5, 13} {
				seen := map[id.SubmissionID]bool{}
				var rows, nonEmpty, pages int
				for p := 1; ; p++ {
					page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, tc.actor,
						models.ListParams{Page: p, PageSize: size, Search: tc.search})
					s.Require().NoError(err)
					s.Equal(tc.total, page.TotalCount)
					pages = page.TotalPages
					if len(page.Rows) == 0 {
						break
					}
					nonEmpty++
					rows += len(page.Rows)
					for _, r := range page.Rows {
						s.False(seen[r.ID], "row repeated across pages")
						seen[r.ID] = true
					}
				}
				s.Equal(tc.total, rows, "search=%q size=%d", tc.search, size)
				s.Equal(pages, nonEmpty, "search=%q size=%d", tc.search, size)
			}
		}
	})

	s.Run("page size is capped", func() {
		page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, s.alice, models.ListParams{PageSize: 1000})
		s.Require().NoError(err)
		s.Equal(service.MaxPageSize, page.PageSize)
		s.Len(page.Rows, 12)
	})
}

func (s *ServiceSuite) TestSearch() {
	siti := s.create(s.alice, "Siti Aminah")
	s.create(s.alice, "Budi")
	s.create(s.bob, "Siti Bob")

	page, err := s.service.Search(s.ctx, models.CategoryMonthlyBulk, s.alice, "siti")
	s.Require().NoError(err)
	s.Equal(1, page.TotalCount)
	s.Equal(siti.ID, page.Rows[0].ID)
	s.Equal(1, page.Page)

	page, err = s.service.Search(s.ctx, models.CategoryMonthlyBulk, s.alice, `%siti\`)
	s.Require().NoError(err)
	s.Equal(1, page.TotalCount, "wildcards are stripped")

	page, err = s.service.Search(s.ctx, models.CategoryMonthlyBulk, s.alice, "%%")
	s.Require().NoError(err)
	s.Equal(2, page.TotalCount, "a query of only wildcards matches everything")

	page, err = s.service.Search(s.ctx, models.CategoryMonthlyBulk, s.admin, "SITI")
	s.Require().NoError(err)
	s.Equal(2, page.TotalCount)

	page, err = s.service.Refresh(s.ctx, models.CategoryMonthlyBulk, s.alice)
	s.Require().NoError(err)
	s.Equal(2, page.TotalCount)
}

func (s *ServiceSuite) TestToggleReady() {
	sub := s.create(s.alice, "Siti")

	s.Run("role user is forbidden and the row is unchanged", func() {
		_, err := s.service.ToggleReady(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
		s.requireCode(err, dErrors.CodeForbidden)

		got, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
		s.Require().NoError(err)
		s.False(got.ReadyForRecording)
		s.Contains(s.auditActions(s.alice.ID), string(audit.EventAuthorizationDenied))
	})

	s.Run("admin toggles any owner's submission", func() {
		ready, err := s.service.ToggleReady(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.admin)
		s.Require().NoError(err)
		s.True(ready)

		ready, err = s.service.ToggleReady(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.super)
		s.Require().NoError(err)
		s.False(ready, "toggling twice restores the original value")
	})

	s.Run("missing submission", func() {
		_, err := s.service.ToggleReady(s.ctx, models.CategoryMonthlyBulk, id.NewSubmissionID(), s.admin)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("concurrent admins each flip the flag once", func() {
		var wg sync.WaitGroup
		for _, actor := range []identity.Actor{s.admin, s.super, s.admin, s.super} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.service.ToggleReady(s.ctx, models.CategoryMonthlyBulk, sub.ID, actor)
				s.NoError(err)
			}()
		}
		wg.Wait()

		got, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
		s.Require().NoError(err)
		s.False(got.ReadyForRecording, "four toggles from false")
	})
}

func (s *ServiceSuite) TestSetScheduledDate() {
	sub := s.create(s.alice, "Siti")

	s.Run("role user is forbidden", func() {
		err := s.service.SetScheduledDate(s.ctx, models.CategoryMonthlyBulk, sub.ID, "2025-04-01", s.bob)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("invalid date", func() {
		for _, date := range []string{"", "2025-02-30", "01-04-2025"} {
			err := s.service.SetScheduledDate(s.ctx, models.CategoryMonthlyBulk, sub.ID, date, s.admin)
			s.requireField(err, "scheduled_date")
		}
	})

	s.Run("missing submission", func() {
		err := s.service.SetScheduledDate(s.ctx, models.CategoryMonthlyBulk, id.NewSubmissionID(), "2025-04-01", s.admin)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("admin sets the date and nothing else", func() {
		s.Require().NoError(s.service.SetScheduledDate(s.ctx, models.CategoryMonthlyBulk, sub.ID, "2025-04-01", s.admin))

		got, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, sub.ID, s.alice)
		s.Require().NoError(err)
		s.Require().NotNil(got.ScheduledDate)
		s.Equal("2025-04-01", got.ScheduledDate.Format(models.DateLayout))
		s.False(got.ReadyForRecording)
		s.Equal(sub.Payload, got.Payload)
	})
}

func (s *ServiceSuite) TestCategoriesAreIsolated() {
	sub := s.create(s.alice, "Siti")
	_, err := s.service.Get(s.ctx, models.CategoryAdjudication, sub.ID, s.alice)
	s.requireCode(err, dErrors.CodeNotFound)
	s.Len(s.service.Categories(), 4)
}

func (s *ServiceSuite) TestNilSubmissionIDChangesNothing() {
	s.create(s.alice, "Siti")
	s.create(s.alice, "Budi")
	var nilID id.SubmissionID

	_, err := s.service.Get(s.ctx, models.CategoryMonthlyBulk, nilID, s.alice)
	s.requireCode(err, dErrors.CodeNotFound)
	_, err = s.service.Edit(s.ctx, models.CategoryMonthlyBulk, nilID, bulkPayload("Overwritten"), s.alice)
	s.requireCode(err, dErrors.CodeNotFound)
	_, err = s.service.ToggleReady(s.ctx, models.CategoryMonthlyBulk, nilID, s.admin)
	s.requireCode(err, dErrors.CodeNotFound)
	err = s.service.SetScheduledDate(s.ctx, models.CategoryMonthlyBulk, nilID, "2025-04-01", s.admin)
	s.requireCode(err, dErrors.CodeNotFound)
	err = s.service.Delete(s.ctx, models.CategoryMonthlyBulk, nilID, s.alice)
	s.requireCode(err, dErrors.CodeNotFound)

	page, err := s.service.List(s.ctx, models.CategoryMonthlyBulk, s.alice, models.ListParams{})
	s.Require().NoError(err)
	s.Equal(2, page.TotalCount)
	names := []string{page.Rows[0].Payload["subject_name"], page.Rows[1].Payload["subject_name"]}
	s.ElementsMatch([]string{"Siti", "Budi"}, names)
	for _, r := range page.Rows {
		s.False(r.ReadyForRecording)
		s.Nil(r.ScheduledDate)
	}
}
