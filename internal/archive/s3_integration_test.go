//go:build integration

package archive

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duraqio/duraq/internal/config"
	"github.com/duraqio/duraq/internal/queue"
)

type localstackHelper struct {
	container testcontainers.Container
	endpoint  string
	client    *s3.Client
}

func newLocalstackHelper(t *testing.T) *localstackHelper {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "localstack/localstack:3.0",
		ExposedPorts: []string{"4566/tcp"},
		Env: map[string]string{
			"SERVICES":              "s3",
			"DEFAULT_REGION":        "us-east-1",
			"EAGER_SERVICE_LOADING": "1",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4566/tcp"),
			wait.ForHTTP("/_localstack/health").WithPort("4566/tcp").WithStartupTimeout(60*time.Second),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start localstack: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container port: %v", err)
	}

	h := &localstackHelper{
		container: container,
		endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	h.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &h.endpoint
		o.UsePathStyle = true
	})

	return h
}

func (h *localstackHelper) createBucket(t *testing.T, bucket string) {
	t.Helper()
	_, err := h.client.CreateBucket(context.Background(), &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		t.Fatalf("create bucket: %v", err)
	}
}

func (h *localstackHelper) cleanup() {
	if h.container != nil {
		_ = h.container.Terminate(context.Background())
	}
}

func TestS3Archiver_ArchiveUploadsEachItem(t *testing.T) {
	helper := newLocalstackHelper(t)
	defer helper.cleanup()

	bucket := fmt.Sprintf("archive-test-%d", time.Now().UnixNano())
	helper.createBucket(t, bucket)

	a := New(helper.client, config.ArchiveConfig{Bucket: bucket, Prefix: "swept/"})

	items := []queue.ArchivedItem{
		{Data: []byte("one"), SweptAt: time.Now()},
		{Data: []byte("two"), SweptAt: time.Now()},
	}

	if err := a.Archive(context.Background(), "orders", items); err != nil {
		t.Fatalf("archive: %v", err)
	}

	out, err := helper.client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String("swept/orders/"),
	})
	if err != nil {
		t.Fatalf("list objects: %v", err)
	}
	if len(out.Contents) != 2 {
		t.Fatalf("expected 2 archived objects, got %d", len(out.Contents))
	}

	obj, err := helper.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    out.Contents[0].Key,
	})
	if err != nil {
		t.Fatalf("get object: %v", err)
	}
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("read object body: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty archived object body")
	}
}

func TestS3Archiver_HealthCheck(t *testing.T) {
	helper := newLocalstackHelper(t)
	defer helper.cleanup()

	bucket := fmt.Sprintf("archive-health-%d", time.Now().UnixNano())
	helper.createBucket(t, bucket)

	a := New(helper.client, config.ArchiveConfig{Bucket: bucket})
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
}
