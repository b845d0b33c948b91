package s3client

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"remoteops/internal/models"
	"remoteops/internal/opserr"
	"remoteops/pkg/utils"
)

func (c *Client) GetBucketInfo(ctx context.Context, bucketName, prefix string) (*models.BucketInfo, error) {
	if bucketName == "" {
		return nil, opserr.Newf(opserr.ErrConfiguration, "bucket info", "bucket name is empty")
	}

	locationResp, err := c.api.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		return nil, opserr.New(opserr.ErrObjectStore, "get bucket location", err)
	}

	region := string(locationResp.LocationConstraint)
	if region == "" {
		region = c.config.Region
	}

	var objectCount int64
	var totalSize int64
	var lastModified time.Time

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(c.api, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, opserr.New(opserr.ErrObjectStore, "list objects", err)
		}

		objectCount += int64(len(page.Contents))
		for _, obj := range page.Contents {
			totalSize += aws.ToInt64(obj.Size)
			if obj.LastModified != nil && obj.LastModified.After(lastModified) {
				lastModified = *obj.LastModified
			}
		}
	}

	bucketsResp, err := c.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, opserr.New(opserr.ErrObjectStore, "list buckets", err)
	}

	var creationDate time.Time
	for _, bucket := range bucketsResp.Buckets {
		if aws.ToString(bucket.Name) == bucketName && bucket.CreationDate != nil {
			creationDate = *bucket.CreationDate
			break
		}
	}

	return &models.BucketInfo{
		BucketName:     bucketName,
		Prefix:         prefix,
		Region:         region,
		CreationDate:   creationDate,
		ObjectCount:    objectCount,
		TotalSizeBytes: totalSize,
		TotalSizeHuman: utils.FormatBytes(totalSize),
		LastModified:   lastModified,
		APIEndpoint:    c.config.ApiURL,
	}, nil
}
