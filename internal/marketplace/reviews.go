package marketplace

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
)

const maxReviewLen = 1000

// AddReview attaches the requester's rating and review to a completed
// exchange and recomputes the provider's rating in the same transaction.
// An exchange can be rated once.
func (e *Engine) AddReview(ctx context.Context, exchangeID, callerID string, rating *int, review string) (*models.Exchange, error) {
	if rating == nil {
		return nil, fmt.Errorf("%w: rating is required", domain.ErrValidation)
	}
	if *rating < 1 || *rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	review = strings.TrimSpace(review)
	if utf8.RuneCountInString(review) > maxReviewLen {
		return nil, fmt.Errorf("%w: review too long (max %d characters)", domain.ErrValidation, maxReviewLen)
	}

	var (
		result    *models.Exchange
		newRating float64
	)
	err := e.run(ctx, "review", func(tx store.Tx) error {
		ex, err := tx.GetExchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		switch RoleOf(ex, callerID) {
		case RoleOutsider:
			return fmt.Errorf("%w: not a participant of exchange %s", domain.ErrForbidden, exchangeID)
		case RoleProvider:
			return fmt.Errorf("%w: only the requester can review an exchange", domain.ErrForbidden)
		}
		if ex.Status != models.StatusCompleted {
			return fmt.Errorf("%w: can only review completed exchanges", domain.ErrInvalidTransition)
		}
		if ex.Rating != nil {
			return fmt.Errorf("%w: exchange already rated", domain.ErrValidation)
		}

		r := *rating
		ex.Rating = &r
		ex.Review = review
		ex.UpdatedAt = e.now()
		if err := tx.UpdateExchange(ctx, ex); err != nil {
			return err
		}

		newRating, err = e.RecomputeRating(ctx, tx, ex.ProviderID)
		if err != nil {
			return err
		}
		result = ex
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[exchange] %s rated %d, provider %s now %.1f", result.ID, *result.Rating, result.ProviderID, newRating)
	e.events.Publish(Event{
		Type:       EventReviewAdded,
		ExchangeID: result.ID,
		Data:       map[string]any{"rating": *result.Rating, "review": result.Review},
	})
	e.notifier.Notify(NotifyReviewReceived, result.ProviderID, map[string]any{
		"exchange_id": result.ID,
		"rating":      *result.Rating,
		"new_average": newRating,
	})
	return result, nil
}

// RecomputeRating sets the provider's rating to the mean of every rating on
// their exchanges, rounded half-up to one decimal. It always starts over
// from the stored ratings. A provider with none gets 0.
func (e *Engine) RecomputeRating(ctx context.Context, tx store.Tx, providerID string) (float64, error) {
	if _, err := tx.LockUser(ctx, providerID); err != nil {
		return 0, err
	}
	ratings, err := tx.ListProviderRatings(ctx, providerID)
	if err != nil {
		return 0, err
	}
	avg := averageRating(ratings)
	if err := tx.SetRating(ctx, providerID, avg); err != nil {
		return 0, err
	}
	return avg, nil
}

func averageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, r := range ratings {
		sum = sum.Add(decimal.NewFromInt(int64(r)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(1).InexactFloat64()
}

// RatingSummary aggregates the ratings a provider has received.
type RatingSummary struct {
	ProviderID    string  `json:"provider_id"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

// Ratings summarises every rating providerID has received.
func (e *Engine) Ratings(ctx context.Context, providerID string) (*RatingSummary, error) {
	var ratings []int
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, providerID); err != nil {
			return err
		}
		var err error
		ratings, err = tx.ListProviderRatings(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s := &RatingSummary{
		ProviderID:    providerID,
		TotalReviews:  len(ratings),
		AverageRating: averageRating(ratings),
	}
	for _, r := range ratings {
		switch r {
		case 5:
			s.RatingCounts.FiveStar++
		case 4:
			s.RatingCounts.FourStar++
		case 3:
			s.RatingCounts.ThreeStar++
		case 2:
			s.RatingCounts.TwoStar++
		case 1:
			s.RatingCounts.OneStar++
		}
	}
	return s, nil
}
