package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

// WriteContent uploads data as a single object, replacing any previous one.
//
// S3 creates and writes in one call, so every failure is reported as
// content.ErrCannotWrite.
func (s *S3ContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("PutObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	if id == "" {
		err = fmt.Errorf("%w: %w", content.ErrCannotCreate, content.ErrInvalidContentID)
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.getObjectKey(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		err = fmt.Errorf("content %s: %w: %w", id, content.ErrCannotWrite, err)
		return err
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// DeleteContent removes the object for id.
//
// S3's DeleteObject succeeds for missing keys, so existence is checked with
// HeadObject first to report content.ErrContentNotFound.
func (s *S3ContentStore) DeleteContent(ctx context.Context, id content.ContentID) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("DeleteObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	key := s.getObjectKey(id)

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			err = fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
			return err
		}
		err = fmt.Errorf("failed to stat object %s: %w", key, err)
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = fmt.Errorf("failed to delete object %s: %w", key, err)
		return err
	}

	return nil
}
