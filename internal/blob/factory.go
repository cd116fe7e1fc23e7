package blob

import (
	"context"
	"fmt"
	"os"

	"plancore/internal/infra/blob/fs"
	"plancore/internal/infra/blob/memory"
	"plancore/internal/infra/blob/s3"
)

// Open selects a blob.Store implementation using environment variables.
//
//	PLANCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	PLANCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./reportdata)
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("PLANCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(os.Getenv("PLANCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
