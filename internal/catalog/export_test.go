package catalog

import "context"

// SetSchemaVersionForTest overwrites the recorded schema version.
func SetSchemaVersionForTest(s *Store, version int) error {
	return s.setUserVersion(context.Background(), version)
}
