// Package profile stores the About Me page: the singleton introduction,
// skills, work experience and certificates.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew    = "profile.service.new"
	opAboutMe       = "profile.about_me"
	opUpdateAboutMe = "profile.update_about_me"
	opSkills        = "profile.skills"
	opExperiences   = "profile.experiences"
	opCertificates  = "profile.certificates"
)

const (
	maxYear            = 9999
	maxExperienceYears = 999.9
	maxProficiency     = 100
)

type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// AboutMe returns the singleton, creating an empty row on first access.
func (s *Service) AboutMe(ctx context.Context) (AboutMe, error) {
	aboutMe, err := EnsureAboutMe(s.db.WithContext(ctx), s.clock().UTC())
	if err != nil {
		s.logError(opAboutMe, "get_or_create_failed", err)
		return AboutMe{}, serviceerr.New(opAboutMe, "get_or_create_failed", err)
	}
	return aboutMe, nil
}

// EnsureAboutMe inserts the singleton row when missing and returns it.
func EnsureAboutMe(db *gorm.DB, now time.Time) (AboutMe, error) {
	seed := AboutMe{ID: aboutMeID, UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return AboutMe{}, err
	}
	var aboutMe AboutMe
	if err := db.Where("id = ?", aboutMeID).Take(&aboutMe).Error; err != nil {
		return AboutMe{}, err
	}
	return aboutMe, nil
}

// UpdateAboutMe applies the non-nil fields of input to the singleton.
func (s *Service) UpdateAboutMe(ctx context.Context, input AboutMeInput) (AboutMe, error) {
	if _, err := s.AboutMe(ctx); err != nil {
		return AboutMe{}, err
	}
	updates := map[string]interface{}{"updated_at": s.clock().UTC()}
	if input.IntroText != nil {
		updates["intro_text"] = *input.IntroText
	}
	if input.Resume != nil {
		updates["resume"] = strings.TrimSpace(*input.Resume)
	}
	if input.ProfileImage != nil {
		updates["profile_image"] = strings.TrimSpace(*input.ProfileImage)
	}
	if err := s.db.WithContext(ctx).Model(&AboutMe{}).Where("id = ?", aboutMeID).Updates(updates).Error; err != nil {
		s.logError(opUpdateAboutMe, "update_failed", err)
		return AboutMe{}, serviceerr.New(opUpdateAboutMe, "update_failed", err)
	}
	return s.AboutMe(ctx)
}

// Skills lists skills by proficiency, strongest first.
func (s *Service) Skills(ctx context.Context) ([]Skill, error) {
	var skills []Skill
	if err := s.db.WithContext(ctx).Order("proficiency DESC").Order("name ASC").Find(&skills).Error; err != nil {
		s.logError(opSkills, "query_failed", err)
		return nil, serviceerr.New(opSkills, "query_failed", err)
	}
	return skills, nil
}

func (s *Service) CreateSkill(ctx context.Context, input SkillInput) (Skill, error) {
	if err := validateSkill(input); err != nil {
		return Skill{}, serviceerr.New(opSkills, "invalid_input", err)
	}
	now := s.clock().UTC()
	skill := Skill{CreatedAt: now}
	applySkill(&skill, input, now)
	if err := s.db.WithContext(ctx).Create(&skill).Error; err != nil {
		s.logError(opSkills, "insert_failed", err)
		return Skill{}, serviceerr.New(opSkills, "insert_failed", err)
	}
	return skill, nil
}

func (s *Service) UpdateSkill(ctx context.Context, id uint64, input SkillInput) (Skill, error) {
	if err := validateSkill(input); err != nil {
		return Skill{}, serviceerr.New(opSkills, "invalid_input", err)
	}
	var skill Skill
	if err := s.take(ctx, &skill, id); err != nil {
		return Skill{}, s.wrapLookup(opSkills, err)
	}
	applySkill(&skill, input, s.clock().UTC())
	if err := s.db.WithContext(ctx).Save(&skill).Error; err != nil {
		s.logError(opSkills, "update_failed", err, zap.Uint64("skill_id", id))
		return Skill{}, serviceerr.New(opSkills, "update_failed", err)
	}
	return skill, nil
}

func (s *Service) DeleteSkill(ctx context.Context, id uint64) error {
	return s.remove(ctx, opSkills, &Skill{}, id)
}

// Experiences lists positions with the most recent first; current positions
// lead within the same start year.
func (s *Service) Experiences(ctx context.Context) ([]Experience, error) {
	var experiences []Experience
	err := s.db.WithContext(ctx).
		Order("start_year DESC").
		Order("CASE WHEN end_year IS NULL THEN 0 ELSE 1 END").
		Order("end_year DESC").
		Order("id ASC").
		Find(&experiences).Error
	if err != nil {
		s.logError(opExperiences, "query_failed", err)
		return nil, serviceerr.New(opExperiences, "query_failed", err)
	}
	return experiences, nil
}

func (s *Service) Experience(ctx context.Context, id uint64) (Experience, error) {
	var experience Experience
	if err := s.take(ctx, &experience, id); err != nil {
		return Experience{}, s.wrapLookup(opExperiences, err)
	}
	return experience, nil
}

func (s *Service) CreateExperience(ctx context.Context, input ExperienceInput) (Experience, error) {
	if err := validateExperience(input); err != nil {
		return Experience{}, serviceerr.New(opExperiences, "invalid_input", err)
	}
	now := s.clock().UTC()
	experience := Experience{CreatedAt: now}
	applyExperience(&experience, input, now)
	if err := s.db.WithContext(ctx).Create(&experience).Error; err != nil {
		s.logError(opExperiences, "insert_failed", err)
		return Experience{}, serviceerr.New(opExperiences, "insert_failed", err)
	}
	return experience, nil
}

func (s *Service) UpdateExperience(ctx context.Context, id uint64, input ExperienceInput) (Experience, error) {
	if err := validateExperience(input); err != nil {
		return Experience{}, serviceerr.New(opExperiences, "invalid_input", err)
	}
	var experience Experience
	if err := s.take(ctx, &experience, id); err != nil {
		return Experience{}, s.wrapLookup(opExperiences, err)
	}
	applyExperience(&experience, input, s.clock().UTC())
	if err := s.db.WithContext(ctx).Save(&experience).Error; err != nil {
		s.logError(opExperiences, "update_failed", err, zap.Uint64("experience_id", id))
		return Experience{}, serviceerr.New(opExperiences, "update_failed", err)
	}
	return experience, nil
}

func (s *Service) DeleteExperience(ctx context.Context, id uint64) error {
	return s.remove(ctx, opExperiences, &Experience{}, id)
}

// Certificates lists certificates by year, newest first, undated ones last.
func (s *Service) Certificates(ctx context.Context) ([]Certificate, error) {
	var certificates []Certificate
	err := s.db.WithContext(ctx).
		Order("CASE WHEN obtained_year IS NULL THEN 1 ELSE 0 END").
		Order("obtained_year DESC").
		Order("title ASC").
		Find(&certificates).Error
	if err != nil {
		s.logError(opCertificates, "query_failed", err)
		return nil, serviceerr.New(opCertificates, "query_failed", err)
	}
	return certificates, nil
}

func (s *Service) Certificate(ctx context.Context, id uint64) (Certificate, error) {
	var certificate Certificate
	if err := s.take(ctx, &certificate, id); err != nil {
		return Certificate{}, s.wrapLookup(opCertificates, err)
	}
	return certificate, nil
}

func (s *Service) CreateCertificate(ctx context.Context, input CertificateInput) (Certificate, error) {
	if err := validateCertificate(input); err != nil {
		return Certificate{}, serviceerr.New(opCertificates, "invalid_input", err)
	}
	now := s.clock().UTC()
	certificate := Certificate{CreatedAt: now}
	applyCertificate(&certificate, input, now)
	if err := s.db.WithContext(ctx).Create(&certificate).Error; err != nil {
		s.logError(opCertificates, "insert_failed", err)
		return Certificate{}, serviceerr.New(opCertificates, "insert_failed", err)
	}
	return certificate, nil
}

func (s *Service) UpdateCertificate(ctx context.Context, id uint64, input CertificateInput) (Certificate, error) {
	if err := validateCertificate(input); err != nil {
		return Certificate{}, serviceerr.New(opCertificates, "invalid_input", err)
	}
	var certificate Certificate
	if err := s.take(ctx, &certificate, id); err != nil {
		return Certificate{}, s.wrapLookup(opCertificates, err)
	}
	applyCertificate(&certificate, input, s.clock().UTC())
	if err := s.db.WithContext(ctx).Save(&certificate).Error; err != nil {
		s.logError(opCertificates, "update_failed", err, zap.Uint64("certificate_id", id))
		return Certificate{}, serviceerr.New(opCertificates, "update_failed", err)
	}
	return certificate, nil
}

func (s *Service) DeleteCertificate(ctx context.Context, id uint64) error {
	return s.remove(ctx, opCertificates, &Certificate{}, id)
}

func (s *Service) take(ctx context.Context, dest interface{}, id uint64) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) wrapLookup(operation string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return serviceerr.New(operation, "not_found", err)
	}
	s.logError(operation, "query_failed", err)
	return serviceerr.New(operation, "query_failed", err)
}

func (s *Service) remove(ctx context.Context, operation string, model interface{}, id uint64) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		s.logError(operation, "delete_failed", result.Error, zap.Uint64("id", id))
		return serviceerr.New(operation, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return serviceerr.New(operation, "not_found", ErrNotFound)
	}
	return nil
}

func applySkill(skill *Skill, input SkillInput, now time.Time) {
	skill.Name = strings.TrimSpace(input.Name)
	skill.Image = strings.TrimSpace(input.Image)
	skill.ExperienceYears = math.Round(input.ExperienceYears*10) / 10
	skill.Proficiency = uint8(input.Proficiency)
	skill.UpdatedAt = now
}

func applyExperience(experience *Experience, input ExperienceInput, now time.Time) {
	experience.Title = strings.TrimSpace(input.Title)
	experience.Company = strings.TrimSpace(input.Company)
	experience.Description = input.Description
	experience.StartYear = input.StartYear
	experience.EndYear = input.EndYear
	experience.Link = optionalString(input.Link)
	experience.UpdatedAt = now
}

func applyCertificate(certificate *Certificate, input CertificateInput, now time.Time) {
	certificate.Title = strings.TrimSpace(input.Title)
	certificate.Description = input.Description
	certificate.Image = strings.TrimSpace(input.Image)
	certificate.Link = optionalString(input.Link)
	certificate.ObtainedYear = input.ObtainedYear
	certificate.UpdatedAt = now
}

func validateSkill(input SkillInput) error {
	if err := requireText("name", input.Name, 100); err != nil {
		return err
	}
	if input.ExperienceYears < 0 || input.ExperienceYears > maxExperienceYears {
		return fmt.Errorf("%w: experience_years must be between 0 and %.1f", ErrInvalidInput, maxExperienceYears)
	}
	if input.Proficiency < 0 || input.Proficiency > maxProficiency {
		return fmt.Errorf("%w: proficiency must be between 0 and %d", ErrInvalidInput, maxProficiency)
	}
	return nil
}

func validateExperience(input ExperienceInput) error {
	if err := requireText("title", input.Title, 200); err != nil {
		return err
	}
	if err := requireText("company", input.Company, 200); err != nil {
		return err
	}
	if !validYear(input.StartYear) {
		return fmt.Errorf("%w: start_year out of range", ErrInvalidInput)
	}
	if input.EndYear != nil {
		if !validYear(*input.EndYear) {
			return fmt.Errorf("%w: end_year out of range", ErrInvalidInput)
		}
		if *input.EndYear < input.StartYear {
			return fmt.Errorf("%w: end_year precedes start_year", ErrInvalidInput)
		}
	}
	return nil
}

func validateCertificate(input CertificateInput) error {
	if err := requireText("title", input.Title, 200); err != nil {
		return err
	}
	if input.ObtainedYear != nil && !validYear(*input.ObtainedYear) {
		return fmt.Errorf("%w: obtained_year out of range", ErrInvalidInput)
	}
	return nil
}

func requireText(field, value string, limit int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if len(trimmed) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, limit)
	}
	return nil
}

func validYear(year int) bool {
	return year > 0 && year <= maxYear
}

func optionalString(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("profile service error", attrs...)
}
