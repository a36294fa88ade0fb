package reviews

import (
	"context"
	"testing"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.ProductReview{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Title:     "Test Product",
		BasePrice: decimal.RequireFromString("10.00"),
		IsActive:  true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &product
}

func TestCreateAndListReviews(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, db)

	first, err := svc.Create(ctx, uuid.New(), product.ID, 5, "great")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(ctx, uuid.New(), product.ID, 3, ""); err != nil {
		t.Fatalf("create second: %v", err)
	}

	reviews, total, err := svc.ListByProduct(ctx, product.ID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got total=%d len=%d", total, len(reviews))
	}
	if first.ReviewDate.Hour() != 0 || first.ReviewDate.Location() != first.ReviewDate.UTC().Location() {
		t.Fatalf("review date not normalized to midnight UTC: %v", first.ReviewDate)
	}
}

func TestCreateRejectsOutOfRangeRating(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	product := seedProduct(t, db)

	for _, rating := range []int{0, 6} {
		_, err := svc.Create(context.Background(), uuid.New(), product.ID, rating, "")
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("rating %d: unexpected error %v", rating, err)
		}
	}
}

func TestCreateUnknownProduct(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), 4, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSecondReviewSameDayConflicts(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db)

	if _, err := svc.Create(ctx, userID, product.ID, 4, "good"); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(ctx, userID, product.ID, 2, "changed my mind")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateOwnerOnly(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db)

	review, err := svc.Create(ctx, userID, product.ID, 4, "good")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rating := 2
	if _, err := svc.Update(ctx, uuid.New(), review.ID, &rating, nil); err == nil {
		t.Fatal("expected forbidden for non-author")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.Update(ctx, userID, review.ID, &rating, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Rating != 2 {
		t.Fatalf("expected rating 2, got %d", updated.Rating)
	}

	var stored models.ProductReview
	if err := db.First(&stored, "id = ?", review.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Rating != 2 || stored.Comment != "good" {
		t.Fatalf("unexpected stored review: %+v", stored)
	}
}

func TestDeleteAuthorAndAdmin(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, db)

	mine, err := svc.Create(ctx, uuid.New(), product.ID, 5, "")
	if err != nil {
		t.Fatalf("create mine: %v", err)
	}
	theirs, err := svc.Create(ctx, uuid.New(), product.ID, 1, "")
	if err != nil {
		t.Fatalf("create theirs: %v", err)
	}

	// Another shopper cannot delete someone else's review.
	if err := svc.Delete(ctx, mine.UserID, false, theirs.ID); err == nil {
		t.Fatal("expected not found for foreign review")
	}

	if err := svc.Delete(ctx, mine.UserID, false, mine.ID); err != nil {
		t.Fatalf("delete own: %v", err)
	}
	if err := svc.Delete(ctx, uuid.New(), true, theirs.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	var count int64
	if err := db.Model(&models.ProductReview{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d", count)
	}
}
