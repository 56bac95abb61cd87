package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kaneo-dev/kaneo-sync/models"
)

type TaskServiceImpl struct {
	tasks    *mongo.Collection
	comments *mongo.Collection
	counters *mongo.Collection
}

func NewTaskService(tasks, comments, counters *mongo.Collection) TaskService {
	return &TaskServiceImpl{tasks: tasks, comments: comments, counters: counters}
}

func (s *TaskServiceImpl) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "task", ID: id}
		}
		return nil, fmt.Errorf("finding task %s: %w", id, err)
	}
	return &task, nil
}

func (s *TaskServiceImpl) GetByProjectAndNumber(ctx context.Context, projectID string, number int) (*models.Task, error) {
	var task models.Task
	err := s.tasks.FindOne(ctx, bson.M{"projectId": projectID, "number": number}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "task", ID: fmt.Sprintf("%s#%d", projectID, number)}
		}
		return nil, fmt.Errorf("finding task %s#%d: %w", projectID, number, err)
	}
	return &task, nil
}

func (s *TaskServiceImpl) FindByDescriptionMarker(ctx context.Context, issueURL string) (*models.Task, error) {
	var task models.Task
	err := s.tasks.FindOne(ctx, bson.M{
		"description": bson.M{"$regex": regexp.QuoteMeta(issueURL)},
	}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "task with marker", ID: issueURL}
		}
		return nil, fmt.Errorf("scanning task descriptions for %s: %w", issueURL, err)
	}
	return &task, nil
}

func (s *TaskServiceImpl) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	if _, err := s.tasks.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (s *TaskServiceImpl) PatchFields(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("patching task %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return &models.ResourceNotFoundError{Kind: "task", ID: id}
	}
	return nil
}

// NextNumber hands out per-project task numbers through an atomic counter
// document.
func (s *TaskServiceImpl) NextNumber(ctx context.Context, projectID string) (int, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "task-number:" + projectID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocating task number for project %s: %w", projectID, err)
	}
	return counter.Seq, nil
}

func (s *TaskServiceImpl) CreateComment(ctx context.Context, comment *models.TaskComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now().UTC()
	if _, err := s.comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

func (s *TaskServiceImpl) FindCommentByExternalID(ctx context.Context, taskID, externalID string) (*models.TaskComment, error) {
	var comment models.TaskComment
	err := s.comments.FindOne(ctx, bson.M{"taskId": taskID, "externalId": externalID}).Decode(&comment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "comment", ID: externalID}
		}
		return nil, fmt.Errorf("finding comment %s: %w", externalID, err)
	}
	return &comment, nil
}

func (s *TaskServiceImpl) GetComment(ctx context.Context, id string) (*models.TaskComment, error) {
	var comment models.TaskComment
	err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.ResourceNotFoundError{Kind: "comment", ID: id}
		}
		return nil, fmt.Errorf("finding comment %s: %w", id, err)
	}
	return &comment, nil
}
