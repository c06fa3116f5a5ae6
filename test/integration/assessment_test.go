//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/mindful/mindful/internal/domain/assessment"
	"github.com/mindful/mindful/internal/domain/screening"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/db"
)

func createTestAssessment(t *testing.T, ctx context.Context, userID, doctorID string, phq9, gad7 int, at time.Time) *assessment.Assessment {
	t.Helper()
	a := &assessment.Assessment{
		ID:        uniqueID("asmt"),
		UserID:    userID,
		DoctorID:  doctorID,
		PHQ9Score: phq9,
		GAD7Score: gad7,
		Answers: assessment.Answers{
			PHQ9: map[string]int{"phq9_q1": 2, "phq9_q9": 1},
			GAD7: map[string]int{"gad7_q1": 3},
		},
		Recommendations: screening.SelectResources(phq9, gad7),
		CreatedAt:       at.UTC().Truncate(time.Microsecond),
	}
	if err := assessment.NewRepoPG(globalDB.Pool).Create(ctx, a); err != nil {
		t.Fatalf("Create assessment: %v", err)
	}
	return a
}

func TestAssessmentRepoPG(t *testing.T) {
	ctx := context.Background()
	repo := assessment.NewRepoPG(globalDB.Pool)
	doctorID := uniqueID("doc")
	userID := uniqueID("pat")

	t.Run("CreateAndGetByID", func(t *testing.T) {
		created := createTestAssessment(t, ctx, userID, doctorID, 18, 9, time.Now())

		fetched, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if fetched.PHQ9Score != 18 || fetched.GAD7Score != 9 {
			t.Errorf("expected scores 18/9, got %d/%d", fetched.PHQ9Score, fetched.GAD7Score)
		}
		if fetched.Answers.PHQ9["phq9_q9"] != 1 || fetched.Answers.GAD7["gad7_q1"] != 3 {
			t.Errorf("answers did not survive JSONB: %+v", fetched.Answers)
		}
		if len(fetched.Recommendations) != len(created.Recommendations) {
			t.Fatalf("expected %d recommendations, got %d", len(created.Recommendations), len(fetched.Recommendations))
		}
		if fetched.Recommendations[0] != created.Recommendations[0] {
			t.Errorf("expected %+v, got %+v", created.Recommendations[0], fetched.Recommendations[0])
		}
		if fetched.Reviewed {
			t.Error("new assessment should not be reviewed")
		}
		if !fetched.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", created.CreatedAt, fetched.CreatedAt)
		}
	})

	t.Run("NilRecommendationsStoredAsEmpty", func(t *testing.T) {
		a := &assessment.Assessment{
			ID:        uniqueID("asmt"),
			UserID:    uniqueID("pat"),
			PHQ9Score: 0,
			GAD7Score: 0,
			Answers:   assessment.Answers{PHQ9: map[string]int{}, GAD7: map[string]int{}},
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
		fetched, err := repo.GetByID(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if fetched.Recommendations == nil || len(fetched.Recommendations) != 0 {
			t.Errorf("expected empty recommendations, got %#v", fetched.Recommendations)
		}
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uniqueID("missing"))
		if !apperr.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("SetReview", func(t *testing.T) {
		a := createTestAssessment(t, ctx, userID, doctorID, 5, 4, time.Now())
		if err := repo.SetReview(ctx, a.ID, "Discussed coping plan"); err != nil {
			t.Fatalf("SetReview: %v", err)
		}
		fetched, err := repo.GetByID(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if !fetched.Reviewed {
			t.Error("expected reviewed after SetReview")
		}
		if fetched.DoctorNote != "Discussed coping plan" {
			t.Errorf("expected note to be stored, got %q", fetched.DoctorNote)
		}
	})

	t.Run("SetReview_NotFound", func(t *testing.T) {
		err := repo.SetReview(ctx, uniqueID("missing"), "note")
		if !apperr.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("PendingReviewQueue", func(t *testing.T) {
		doc := uniqueID("doc")
		base := time.Now().Add(-time.Hour)
		older := createTestAssessment(t, ctx, uniqueID("pat"), doc, 20, 2, base)
		newer := createTestAssessment(t, ctx, uniqueID("pat"), doc, 3, 16, base.Add(time.Minute))
		reviewed := createTestAssessment(t, ctx, uniqueID("pat"), doc, 22, 20, base.Add(2*time.Minute))
		if err := repo.SetReview(ctx, reviewed.ID, "seen"); err != nil {
			t.Fatalf("SetReview: %v", err)
		}

		items, err := repo.ListPendingReview(ctx, doc, 10)
		if err != nil {
			t.Fatalf("ListPendingReview: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 pending, got %d", len(items))
		}
		if items[0].ID != newer.ID || items[1].ID != older.ID {
			t.Errorf("expected newest first, got %s then %s", items[0].ID, items[1].ID)
		}

		n, err := repo.CountPendingReview(ctx, doc)
		if err != nil {
			t.Fatalf("CountPendingReview: %v", err)
		}
		if n != 2 {
			t.Errorf("expected count 2, got %d", n)
		}
	})

	t.Run("LatestByUser", func(t *testing.T) {
		pat := uniqueID("pat")
		base := time.Now().Add(-time.Hour)
		createTestAssessment(t, ctx, pat, doctorID, 4, 4, base)
		latest := createTestAssessment(t, ctx, pat, doctorID, 12, 6, base.Add(time.Minute))

		got, err := repo.LatestByUser(ctx, pat)
		if err != nil {
			t.Fatalf("LatestByUser: %v", err)
		}
		if got.ID != latest.ID {
			t.Errorf("expected %s, got %s", latest.ID, got.ID)
		}

		all, err := repo.ListByUser(ctx, pat)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(all) != 2 || all[0].ID != latest.ID {
			t.Errorf("expected 2 assessments newest first, got %d", len(all))
		}
	})

	t.Run("RollbackDiscardsInsert", func(t *testing.T) {
		tx := db.NewTransactor(globalDB.Pool)
		id := uniqueID("asmt")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			a := &assessment.Assessment{
				ID:        id,
				UserID:    userID,
				Answers:   assessment.Answers{PHQ9: map[string]int{}, GAD7: map[string]int{}},
				CreatedAt: time.Now().UTC(),
			}
			if err := repo.Create(ctx, a); err != nil {
				return err
			}
			return apperr.Conflict("abort")
		})
		if !apperr.IsConflict(err) {
			t.Fatalf("expected the callback error back, got %v", err)
		}
		if _, err := repo.GetByID(ctx, id); !apperr.IsNotFound(err) {
			t.Errorf("expected rolled back insert to be gone, got %v", err)
		}
	})
}
