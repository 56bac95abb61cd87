// Package migration backfills external link rows from the legacy scheme
// that stored issue references as free text in task descriptions.
package migration

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/services"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

// migrationID guards the backfill so it runs once per database.
const migrationID = "legacy-issue-links"

var markerRe = regexp.MustCompile(`Linked to (GitHub|Gitea) issue: (https?://\S+)`)

var issueNumberRe = regexp.MustCompile(`/issues/(\d+)\s*$`)

// LegacyMarker is one pre-link-store issue reference found in a task
// description.
type LegacyMarker struct {
	Provider string
	URL      string
	Number   int
}

// ParseMarkers extracts every legacy issue marker from a description.
// Markers whose URL does not end in an issue number are dropped.
func ParseMarkers(description string) []LegacyMarker {
	var out []LegacyMarker
	for _, m := range markerRe.FindAllStringSubmatch(description, -1) {
		url := strings.TrimRight(m[2], ".,;)")
		num := issueNumberRe.FindStringSubmatch(url)
		if num == nil {
			continue
		}
		n, err := strconv.Atoi(num[1])
		if err != nil {
			continue
		}
		out = append(out, LegacyMarker{
			Provider: strings.ToLower(m[1]),
			URL:      url,
			Number:   n,
		})
	}
	return out
}

// Runner performs the one-time backfill at startup. The description text is
// left in place: webhook handlers keep a marker-based fallback for anything
// the scan misses.
type Runner struct {
	tasks        *mongo.Collection
	migrations   *mongo.Collection
	links        services.LinkService
	integrations services.IntegrationService
	logger       *utils.Logger
}

func NewRunner(tasks, migrations *mongo.Collection, links services.LinkService, integrations services.IntegrationService, logger *utils.Logger) *Runner {
	return &Runner{
		tasks:        tasks,
		migrations:   migrations,
		links:        links,
		integrations: integrations,
		logger:       logger,
	}
}

// Run executes the backfill unless a previous run already recorded it.
func (r *Runner) Run(ctx context.Context) error {
	err := r.migrations.FindOne(ctx, bson.M{"_id": migrationID}).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	cursor, err := r.tasks.Find(ctx, bson.M{
		"description": bson.M{"$regex": `Linked to (GitHub|Gitea) issue: `},
	})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	migrated := 0
	for cursor.Next(ctx) {
		var task models.Task
		if err := cursor.Decode(&task); err != nil {
			return err
		}
		for _, marker := range ParseMarkers(task.Description) {
			integration, err := r.integrations.ActiveForProjectProvider(ctx, task.ProjectID, marker.Provider)
			if err != nil {
				var notFound *models.ResourceNotFoundError
				if errors.As(err, &notFound) {
					r.logger.LogWarn(ctx, "legacy marker without active integration",
						zap.String("task_id", task.ID), zap.String("provider", marker.Provider))
					continue
				}
				return err
			}
			if _, err := r.links.CreateOrUpdate(ctx, services.CreateLinkInput{
				TaskID:        task.ID,
				IntegrationID: integration.ID,
				ResourceType:  models.ResourceTypeIssue,
				ExternalID:    strconv.Itoa(marker.Number),
				URL:           marker.URL,
			}); err != nil {
				return err
			}
			migrated++
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	_, err = r.migrations.InsertOne(ctx, bson.M{
		"_id":       migrationID,
		"appliedAt": time.Now().UTC(),
		"migrated":  migrated,
	})
	if err != nil {
		return err
	}
	r.logger.LogInfo(ctx, "legacy issue link backfill complete", zap.Int("migrated", migrated))
	return nil
}
