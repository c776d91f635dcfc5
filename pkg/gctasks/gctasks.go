package gctasks

import (
	"context"
	"fmt"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Client schedules HTTP callback tasks. The allocation engine uses it to
// defer best-effort retries, e.g. provider refund calls that failed.
type Client interface {
	CreateTask(queueID string, request Request) error
	DeferCreateTaskInDuration(queueID string, request Request, duration time.Duration) error
	DeferCreateTaskInTime(queueID string, request Request, schedule time.Time) error
	Close() error
}

type Request struct {
	URL    string
	Method cloudtaskspb.HttpMethod
	Header map[string]string
	Body   []byte
}

type tasksClientImpl struct {
	projectID  string
	locationID string
	logger     *logrus.Logger
	client     *cloudtasks.Client
}

func NewGCTasks(logger *logrus.Logger, projectID, locationID string, credsJSON []byte) Client {
	c, err := cloudtasks.NewClient(context.Background(), option.WithCredentialsJSON(credsJSON))
	if err != nil {
		logger.WithField("object", "gctasks").Error(err)
		return nil
	}

	return &tasksClientImpl{
		logger:     logger,
		client:     c,
		projectID:  projectID,
		locationID: locationID,
	}
}

func (tc *tasksClientImpl) Close() error {
	return tc.client.Close()
}

func (tc *tasksClientImpl) queuePath(queueID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", tc.projectID, tc.locationID, queueID)
}

func (tc *tasksClientImpl) createTask(queueID string, request Request, schedule *time.Time) error {
	task := &cloudtaskspb.Task{
		MessageType: &cloudtaskspb.Task_HttpRequest{
			HttpRequest: &cloudtaskspb.HttpRequest{
				Url:        request.URL,
				HttpMethod: request.Method,
				Headers:    request.Header,
				Body:       request.Body,
			},
		},
	}

	if schedule != nil {
		task.ScheduleTime = &timestamppb.Timestamp{Seconds: schedule.Unix()}
	}

	_, err := tc.client.CreateTask(context.Background(), &cloudtaskspb.CreateTaskRequest{
		Parent: tc.queuePath(queueID),
		Task:   task,
	})
	if err != nil {
		tc.logger.WithFields(logrus.Fields{
			"object":  "gctasks",
			"queueId": queueID,
		}).Error(err)
		return err
	}

	return nil
}

func (tc *tasksClientImpl) CreateTask(queueID string, request Request) error {
	return tc.createTask(queueID, request, nil)
}

func (tc *tasksClientImpl) DeferCreateTaskInDuration(queueID string, request Request, duration time.Duration) error {
	schedule := time.Now().Add(duration)
	return tc.createTask(queueID, request, &schedule)
}

func (tc *tasksClientImpl) DeferCreateTaskInTime(queueID string, request Request, schedule time.Time) error {
	return tc.createTask(queueID, request, &schedule)
}
