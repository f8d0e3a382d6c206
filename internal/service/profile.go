package service

import (
	"context"
	"errors"
	"regexp"
	"unicode/utf8"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/repository"
	"arsenal-bot/internal/textstyle"
)

// MaxBioLength is the longest bio accepted, in runes.
const MaxBioLength = 190

var (
	ErrBioTooLong   = errors.New("bio is too long")
	ErrInvalidColor = errors.New("accent colour must look like #RRGGBB")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ProfileRepository stores profile customisation.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
	Delete(ctx context.Context, userID string) error
}

// ProfileView is a profile with its style applied.
type ProfileView struct {
	Profile      *model.Profile
	StyledName   string
	StyledBio    string
	IsConfigured bool
}

// ProfileService handles profile customisation.
type ProfileService struct {
	profiles ProfileRepository
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(profiles ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Configure validates and saves a user's profile settings.
func (s *ProfileService) Configure(ctx context.Context, userID, style, bio, accent string) (*model.Profile, error) {
	st, err := textstyle.Parse(style)
	if err != nil {
		return nil, apperr.Precondition("profile.configure", err)
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, apperr.Precondition("profile.configure", ErrBioTooLong)
	}
	if accent != "" && !hexColor.MatchString(accent) {
		return nil, apperr.Precondition("profile.configure", ErrInvalidColor)
	}

	p := &model.Profile{UserID: userID, Style: string(st), Bio: bio, AccentColor: accent}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, apperr.Infra("profile.configure", err)
	}
	return p, nil
}

// View renders a user's profile. Users who never configured one get the
// normal style and an empty bio.
func (s *ProfileService) View(ctx context.Context, userID, displayName string) (*ProfileView, error) {
	p, err := s.profiles.Get(ctx, userID)
	configured := true
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperr.Infra("profile.view", err)
		}
		p = &model.Profile{UserID: userID, Style: string(textstyle.Normal)}
		configured = false
	}

	st := textstyle.Style(p.Style)
	return &ProfileView{
		Profile:      p,
		StyledName:   textstyle.Apply(st, displayName),
		StyledBio:    textstyle.Apply(st, p.Bio),
		IsConfigured: configured,
	}, nil
}

// TestStyle previews a style without saving anything.
func (s *ProfileService) TestStyle(style, text string) (string, error) {
	st, err := textstyle.Parse(style)
	if err != nil {
		return "", apperr.Precondition("profile.test_style", err)
	}
	return textstyle.Apply(st, text), nil
}

// Reset deletes a user's profile settings.
func (s *ProfileService) Reset(ctx context.Context, userID string) error {
	if err := s.profiles.Delete(ctx, userID); err != nil {
		return apperr.Infra("profile.reset", err)
	}
	return nil
}
