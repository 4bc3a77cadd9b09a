package services

import (
	"context"

	"github.com/desertthunder/mustx/internal/models"
)

// Service is the MustApp data source used by the fetch pipeline.
type Service interface {
	// GetProfile looks a user up by the uri part of their profile URL (mustapp.com/@{username}).
	GetProfile(ctx context.Context, username string) (*models.Profile, error)

	// GetProfileFromPage scrapes the profile from the public profile page.
	GetProfileFromPage(ctx context.Context, username string) (*models.Profile, error)

	// GetUserProducts fetches the user's entries for the given product ids, embedding the named relations.
	// With no embed arguments [DefaultEmbed] is used.
	GetUserProducts(ctx context.Context, userID int64, productIDs []int64, embed ...string) (models.UserProductList, error)

	// Name returns the name of the service
	Name() string
}

// DefaultEmbed is the relation set requested for list entries.
var DefaultEmbed = []string{"product", "review"}
