package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anipass-feed/internal/domain"
)

// DeleteMode выбирает исход удаления записи с рецензией.
type DeleteMode string

const (
	// DeleteAll удаляет оценку вместе с рецензией.
	DeleteAll DeleteMode = "all"
	// DeleteReviewOnly удаляет только рецензию, оценка остаётся.
	DeleteReviewOnly DeleteMode = "review_only"
)

// EditMode выбирает сценарий редактирования записи.
type EditMode string

const (
	// EditRating меняет только оценку.
	EditRating EditMode = "edit_rating"
	// AddReview добавляет рецензию к существующей оценке.
	AddReview EditMode = "add_review"
	// EditReview обновляет рецензию; без текста меняется только оценка.
	EditReview EditMode = "edit"
)

// Service направляет удаление и редактирование к типозависимым
// вызовам бэкенда. Это таблица диспетчеризации по типу записи,
// не машина состояний.
type Service struct {
	api  domain.ContentAPI
	auth domain.AuthState
}

// NewService создаёт сервис контента.
func NewService(api domain.ContentAPI, auth domain.AuthState) *Service {
	return &Service{api: api, auth: auth}
}

// DeleteOutcome описывает побочный эффект удаления.
type DeleteOutcome struct {
	// NeedsRefresh взводится, когда запись остаётся в ленте
	// (удалена только рецензия) и список надо перечитать.
	NeedsRefresh bool
}

// Delete удаляет запись согласно её типу и режиму. Ответ 404
// означает, что запись уже удалена, и считается успехом.
func (s *Service) Delete(ctx context.Context, activity domain.Activity, mode DeleteMode) (DeleteOutcome, error) {
	if !s.auth.Authenticated() {
		return DeleteOutcome{}, domain.ErrAuthRequired
	}

	var outcome DeleteOutcome
	var err error
	switch {
	case activity.ActivityType == domain.ActivityUserPost:
		postID := activity.ReviewID
		if postID == 0 {
			postID = activity.ItemID
		}
		if postID != 0 {
			err = s.api.DeletePost(ctx, postID)
		} else {
			err = s.api.DeleteActivity(ctx, activity.ID)
		}
	case mode == DeleteReviewOnly && activity.HasReview():
		outcome.NeedsRefresh = true
		switch activity.ActivityType {
		case domain.ActivityAnimeRating:
			err = s.api.DeleteMyAnimeReview(ctx, activity.ItemID)
		case domain.ActivityCharacterRating:
			err = s.api.DeleteMyCharacterReview(ctx, activity.ItemID)
		default:
			return DeleteOutcome{}, fmt.Errorf("%w: %s", domain.ErrUnknownActivity, activity.ActivityType)
		}
	default:
		switch activity.ActivityType {
		case domain.ActivityAnimeRating:
			err = s.api.DeleteAnimeRating(ctx, activity.ItemID)
		case domain.ActivityCharacterRating:
			err = s.api.DeleteCharacterRating(ctx, activity.ItemID)
		case domain.ActivityRankPromotion:
			err = s.api.DeleteActivity(ctx, activity.ID)
		default:
			return DeleteOutcome{}, fmt.Errorf("%w: %s", domain.ErrUnknownActivity, activity.ActivityType)
		}
	}

	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return DeleteOutcome{}, fmt.Errorf("удаление записи: %w", err)
	}
	return outcome, nil
}

// SaveEdit применяет редактирование к оценке или рецензии записи.
func (s *Service) SaveEdit(ctx context.Context, activity domain.Activity, mode EditMode, draft domain.ReviewDraft) error {
	if !s.auth.Authenticated() {
		return domain.ErrAuthRequired
	}
	isAnime := activity.ActivityType == domain.ActivityAnimeRating
	if !isAnime && activity.ActivityType != domain.ActivityCharacterRating {
		return fmt.Errorf("%w: %s", domain.ErrUnknownActivity, activity.ActivityType)
	}

	switch mode {
	case EditRating:
		return s.rate(ctx, isAnime, activity.ItemID, draft.Rating)
	case AddReview:
		if isAnime {
			if err := s.api.CreateAnimeReview(ctx, activity.ItemID, draft); err != nil {
				return fmt.Errorf("создание рецензии: %w", err)
			}
			return nil
		}
		if err := s.api.CreateCharacterReview(ctx, activity.ItemID, draft); err != nil {
			return fmt.Errorf("создание рецензии: %w", err)
		}
		return nil
	case EditReview:
		if strings.TrimSpace(draft.Content) != "" {
			return s.updateReview(ctx, isAnime, activity.ItemID, draft)
		}
		if draft.Rating != activity.Rating {
			return s.rate(ctx, isAnime, activity.ItemID, draft.Rating)
		}
		return nil
	default:
		return fmt.Errorf("неизвестный режим редактирования: %s", mode)
	}
}

// CreatePost публикует свободный пост.
func (s *Service) CreatePost(ctx context.Context, text string) (domain.Activity, error) {
	if !s.auth.Authenticated() {
		return domain.Activity{}, domain.ErrAuthRequired
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Activity{}, domain.ErrEmptyContent
	}
	activity, err := s.api.CreatePost(ctx, trimmed)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("создание поста: %w", err)
	}
	return activity, nil
}

func (s *Service) rate(ctx context.Context, isAnime bool, itemID int64, rating float64) error {
	var err error
	if isAnime {
		err = s.api.RateAnime(ctx, itemID, rating)
	} else {
		err = s.api.RateCharacter(ctx, itemID, rating)
	}
	if err != nil {
		return fmt.Errorf("сохранение оценки: %w", err)
	}
	return nil
}

// updateReview сначала узнаёт настоящий id рецензии: id записи ленты
// бэкенду для этого не подходит.
func (s *Service) updateReview(ctx context.Context, isAnime bool, itemID int64, draft domain.ReviewDraft) error {
	if isAnime {
		review, err := s.api.GetMyAnimeReview(ctx, itemID)
		if err != nil {
			return fmt.Errorf("поиск рецензии: %w", err)
		}
		if err := s.api.UpdateAnimeReview(ctx, review.ID, draft); err != nil {
			return fmt.Errorf("обновление рецензии: %w", err)
		}
		return nil
	}
	review, err := s.api.GetMyCharacterReview(ctx, itemID)
	if err != nil {
		return fmt.Errorf("поиск рецензии: %w", err)
	}
	if err := s.api.UpdateCharacterReview(ctx, review.ID, draft); err != nil {
		return fmt.Errorf("обновление рецензии: %w", err)
	}
	return nil
}
