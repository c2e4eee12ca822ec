package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

// ReadContent downloads the whole object for id.
func (s *S3ContentStore) ReadContent(ctx context.Context, id content.ContentID) (data []byte, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("GetObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			err = fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
			return nil, err
		}
		err = fmt.Errorf("content %s: %w: %w", id, content.ErrCannotRead, err)
		return nil, err
	}
	defer func() { _ = result.Body.Close() }()

	data, err = io.ReadAll(result.Body)
	if err != nil {
		err = fmt.Errorf("content %s: %w: %w", id, content.ErrCannotRead, err)
		return nil, err
	}

	s.metrics.RecordBytes("read", int64(len(data)))
	return data, nil
}
