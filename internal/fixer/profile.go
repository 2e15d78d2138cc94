package fixer

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// Profile is a fixer's service profile. A user becomes a fixer once an
// admin approves the profile; edits after approval are flagged as pending
// changes and re-reviewed while the profile stays live.
type Profile struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	DisplayName     string     `json:"display_name"`
	Bio             string     `json:"bio,omitempty"`
	CategoryIDs     []string   `json:"category_ids"`
	NeighborhoodID  string     `json:"neighborhood_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	PendingChanges  bool       `json:"pending_changes"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type profileInput struct {
	DisplayName    string   `json:"display_name"`
	Bio            string   `json:"bio"`
	CategoryIDs    []string `json:"category_ids"`
	NeighborhoodID string   `json:"neighborhood_id"`
}

func (in *profileInput) validate() error {
	if in.DisplayName == "" {
		return apperr.New(apperr.CodeValidation, "display_name is required")
	}
	if len(in.CategoryIDs) == 0 {
		return apperr.New(apperr.CodeValidation, "at least one category is required")
	}
	return nil
}

func loadProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	var bio, hood, reason *string
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, user_id::text, display_name, bio, category_ids,
               neighborhood_id, approved_at, pending_changes, rejection_reason, created_at
        FROM fixer_profiles WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.DisplayName, &bio, &p.CategoryIDs,
		&hood, &p.ApprovedAt, &p.PendingChanges, &reason, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "fixer profile not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load fixer profile")
	}
	if bio != nil {
		p.Bio = *bio
	}
	if hood != nil {
		p.NeighborhoodID = *hood
	}
	if reason != nil {
		p.RejectionReason = *reason
	}
	return &p, nil
}

// CreateProfile registers a fixer profile for review. One profile per user.
func CreateProfile(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var in profileInput
	if err := c.Bind(&in); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if err := in.validate(); err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	var id string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO fixer_profiles (user_id, display_name, bio, category_ids, neighborhood_id)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''))
        ON CONFLICT (user_id) DO NOTHING
        RETURNING id::text`,
		ident.UserID, in.DisplayName, in.Bio, in.CategoryIDs, in.NeighborhoodID,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "you already have a fixer profile"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create fixer profile"))
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// UpdateProfile edits the caller's profile. An approved profile stays live
// and visible while the edit waits for re-review.
func UpdateProfile(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var in profileInput
	if err := c.Bind(&in); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if err := in.validate(); err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	tag, err := db.Conn.Exec(ctx, `
        UPDATE fixer_profiles
        SET display_name = $1, bio = $2, category_ids = $3,
            neighborhood_id = NULLIF($4, ''),
            pending_changes = (approved_at IS NOT NULL),
            rejection_reason = NULL,
            updated_at = NOW()
        WHERE user_id = $5`,
		in.DisplayName, in.Bio, in.CategoryIDs, in.NeighborhoodID, ident.UserID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to update fixer profile"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "fixer profile not found"))
	}

	p, err := loadProfile(ctx, ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// MyProfile returns the caller's fixer profile.
func MyProfile(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	p, err := loadProfile(context.Background(), ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
