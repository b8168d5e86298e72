package profile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "profile.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&AboutMe{}, &Skill{}, &Experience{}, &Certificate{}); err != nil {
		t.Fatalf("failed to migrate profile schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func intPointer(value int) *int {
	return &value
}

func stringPointer(value string) *string {
	return &value
}

func TestAboutMeIsSingleton(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	first, err := service.AboutMe(ctx)
	if err != nil {
		t.Fatalf("about me failed: %v", err)
	}
	if first.ID != aboutMeID || first.IntroText != "" {
		t.Fatalf("unexpected initial about me: %#v", first)
	}

	updated, err := service.UpdateAboutMe(ctx, AboutMeInput{
		IntroText:    stringPointer("Backend engineer"),
		ProfileImage: stringPointer("about_me/profile/me.jpg"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.IntroText != "Backend engineer" || updated.ProfileImage != "about_me/profile/me.jpg" || updated.Resume != "" {
		t.Fatalf("unexpected update result: %#v", updated)
	}

	if _, err := service.AboutMe(ctx); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	var rows int64
	if err := db.Model(&AboutMe{}).Count(&rows).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single about me row, got %d", rows)
	}
}

func TestSkillsOrderedByProficiency(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	inputs := []SkillInput{
		{Name: "Python", ExperienceYears: 4.26, Proficiency: 80},
		{Name: "Go", ExperienceYears: 2, Proficiency: 95},
		{Name: "Docker", ExperienceYears: 1.5, Proficiency: 60},
	}
	for _, input := range inputs {
		if _, err := service.CreateSkill(ctx, input); err != nil {
			t.Fatalf("create skill failed: %v", err)
		}
	}

	skills, err := service.Skills(ctx)
	if err != nil {
		t.Fatalf("list skills failed: %v", err)
	}
	if len(skills) != 3 || skills[0].Name != "Go" || skills[2].Name != "Docker" {
		t.Fatalf("unexpected skill order: %#v", skills)
	}
	if skills[1].ExperienceYears != 4.3 {
		t.Fatalf("expected experience years rounded to 4.3, got %v", skills[1].ExperienceYears)
	}

	if _, err := service.CreateSkill(ctx, SkillInput{Name: "Rust", Proficiency: 101}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid proficiency error, got %v", err)
	}
}

func TestSkillUpdateAndDelete(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	skill, err := service.CreateSkill(ctx, SkillInput{Name: "Go", Proficiency: 50})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	updated, err := service.UpdateSkill(ctx, skill.ID, SkillInput{Name: "Go", Proficiency: 90, ExperienceYears: 3})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Proficiency != 90 || updated.ExperienceYears != 3 {
		t.Fatalf("unexpected update: %#v", updated)
	}
	if err := service.DeleteSkill(ctx, skill.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := service.DeleteSkill(ctx, skill.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.UpdateSkill(ctx, skill.ID, SkillInput{Name: "Go"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestExperiencePeriodAndOrdering(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	inputs := []ExperienceInput{
		{Title: "Intern", Company: "Acme", StartYear: 2019, EndYear: intPointer(2020)},
		{Title: "Engineer", Company: "Acme", StartYear: 2021, EndYear: intPointer(2023)},
		{Title: "Senior Engineer", Company: "Globex", StartYear: 2023},
		{Title: "Contractor", Company: "Initech", StartYear: 2023, EndYear: intPointer(2024)},
	}
	for _, input := range inputs {
		if _, err := service.CreateExperience(ctx, input); err != nil {
			t.Fatalf("create experience failed: %v", err)
		}
	}

	experiences, err := service.Experiences(ctx)
	if err != nil {
		t.Fatalf("list experiences failed: %v", err)
	}
	var titles []string
	for _, experience := range experiences {
		titles = append(titles, experience.Title)
	}
	expected := []string{"Senior Engineer", "Contractor", "Engineer", "Intern"}
	for index := range expected {
		if titles[index] != expected[index] {
			t.Fatalf("unexpected order %v", titles)
		}
	}
	if experiences[0].Period() != "2023 - Present" {
		t.Fatalf("unexpected open period %q", experiences[0].Period())
	}
	if experiences[3].Period() != "2019 - 2020" {
		t.Fatalf("unexpected closed period %q", experiences[3].Period())
	}

	if _, err := service.CreateExperience(ctx, ExperienceInput{Title: "x", Company: "y", StartYear: 2024, EndYear: intPointer(2020)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if _, err := service.Experience(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCertificatesOrderUndatedLast(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	inputs := []CertificateInput{
		{Title: "Undated award"},
		{Title: "B cert", ObtainedYear: intPointer(2022)},
		{Title: "A cert", ObtainedYear: intPointer(2022)},
		{Title: "Newest", ObtainedYear: intPointer(2024), Link: stringPointer(" ")},
	}
	for _, input := range inputs {
		if _, err := service.CreateCertificate(ctx, input); err != nil {
			t.Fatalf("create certificate failed: %v", err)
		}
	}

	certificates, err := service.Certificates(ctx)
	if err != nil {
		t.Fatalf("list certificates failed: %v", err)
	}
	expected := []string{"Newest", "A cert", "B cert", "Undated award"}
	for index, certificate := range certificates {
		if certificate.Title != expected[index] {
			t.Fatalf("unexpected order at %d: %q", index, certificate.Title)
		}
	}
	if certificates[0].Link != nil {
		t.Fatalf("expected blank link to be stored as null")
	}
}
