package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/go-faker/faker/v4"
	"github.com/jasurdev/portfolio-api/internal/cache"
	"github.com/jasurdev/portfolio-api/internal/database"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedCounts struct {
	Tags     int
	Posts    int
	Projects int
	Skills   int
}

func newSeedCommand() *cobra.Command {
	counts := seedCounts{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo portfolio content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db *gorm.DB, logger *zap.Logger) error {
				if err := database.Migrate(db, logger); err != nil {
					return err
				}
				return seed(cmd.Context(), db, logger, counts)
			})
		},
	}
	cmd.Flags().IntVar(&counts.Tags, "tags", 5, "Number of tags to create")
	cmd.Flags().IntVar(&counts.Posts, "posts", 6, "Number of posts to create")
	cmd.Flags().IntVar(&counts.Projects, "projects", 4, "Number of projects to create")
	cmd.Flags().IntVar(&counts.Skills, "skills", 6, "Number of skills to create")
	return cmd
}

func seed(ctx context.Context, db *gorm.DB, logger *zap.Logger, counts seedCounts) error {
	domain, err := buildServices(db, serviceOptions{Logger: logger, Cache: cache.Nop{}})
	if err != nil {
		return err
	}

	tagIDs := make([]uint64, 0, counts.Tags)
	for len(tagIDs) < counts.Tags {
		tag, err := domain.tags.Create(ctx, faker.Word())
		if errors.Is(err, tags.ErrDuplicateTag) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed tag: %w", err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	for index := 0; index < counts.Posts; index++ {
		_, err := domain.posts.Create(ctx, posts.Input{
			Title:   strings.TrimSuffix(faker.Sentence(), "."),
			Content: faker.Paragraph(),
			TagIDs:  pickTags(tagIDs),
		})
		if err != nil {
			return fmt.Errorf("seed post: %w", err)
		}
	}

	owner := viper.GetString("admin.username")
	for index := 0; index < counts.Projects; index++ {
		github := faker.URL()
		_, err := domain.projects.Create(ctx, owner, projects.Input{
			Title:       strings.TrimSuffix(faker.Sentence(), "."),
			Description: faker.Paragraph(),
			GithubLink:  &github,
			TagIDs:      pickTags(tagIDs),
		})
		if err != nil {
			return fmt.Errorf("seed project: %w", err)
		}
	}

	for index := 0; index < counts.Skills; index++ {
		_, err := domain.profile.CreateSkill(ctx, profile.SkillInput{
			Name:            faker.Word(),
			ExperienceYears: float64(rand.IntN(100)) / 10,
			Proficiency:     rand.IntN(101),
		})
		if err != nil {
			return fmt.Errorf("seed skill: %w", err)
		}
	}

	if err := seedProfile(ctx, domain.profile); err != nil {
		return err
	}

	heroText := faker.Sentence()
	if _, err := domain.home.Upsert(ctx, home.Input{HeroText: &heroText}); err != nil {
		return fmt.Errorf("seed home: %w", err)
	}

	logger.Info("demo content seeded",
		zap.Int("tags", len(tagIDs)),
		zap.Int("posts", counts.Posts),
		zap.Int("projects", counts.Projects),
		zap.Int("skills", counts.Skills))
	return nil
}

func seedProfile(ctx context.Context, service *profile.Service) error {
	intro := faker.Paragraph()
	if _, err := service.UpdateAboutMe(ctx, profile.AboutMeInput{IntroText: &intro}); err != nil {
		return fmt.Errorf("seed about me: %w", err)
	}

	firstEnd := 2019
	spans := []struct {
		start int
		end   *int
	}{
		{start: 2016, end: &firstEnd},
		{start: 2020},
	}
	for _, span := range spans {
		if _, err := service.CreateExperience(ctx, profile.ExperienceInput{
			Title:       faker.Word(),
			Company:     faker.Word(),
			Description: faker.Sentence(),
			StartYear:   span.start,
			EndYear:     span.end,
		}); err != nil {
			return fmt.Errorf("seed experience: %w", err)
		}
	}

	year := 2022
	link := faker.URL()
	if _, err := service.CreateCertificate(ctx, profile.CertificateInput{
		Title:        strings.TrimSuffix(faker.Sentence(), "."),
		Description:  faker.Sentence(),
		Link:         &link,
		ObtainedYear: &year,
	}); err != nil {
		return fmt.Errorf("seed certificate: %w", err)
	}
	return nil
}

func pickTags(tagIDs []uint64) []uint64 {
	if len(tagIDs) == 0 {
		return nil
	}
	picked := make([]uint64, 0, 2)
	for _, index := range rand.Perm(len(tagIDs))[:min(2, len(tagIDs))] {
		picked = append(picked, tagIDs[index])
	}
	return picked
}
