// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is how often TryLockContext polls for the advisory
// lock before ctx is done.
const lockRetryInterval = 50 * time.Millisecond

// SaveToFile writes a snapshot to path, holding an advisory file lock
// for the duration of the write so a concurrent process (a backup job,
// another vexd instance pointed at the same snapshot) can't observe or
// produce a torn file. The lock is advisory and only coordinates
// cooperating processes. Acquisition polls every lockRetryInterval until
// the lock is taken or ctx is done; with a ctx that is never cancelled
// it waits for as long as another process holds the lock.
func (s *Store) SaveToFile(ctx context.Context, path string) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("store: acquire snapshot lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("store: snapshot lock %s is held by another process", path+".lock")
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create snapshot file: %w", err)
	}
	defer f.Close()

	if err := s.Save(f); err != nil {
		return err
	}
	return f.Sync()
}

// LoadFromFile reads a snapshot previously written by SaveToFile,
// holding the same advisory lock while reading.
func (s *Store) LoadFromFile(ctx context.Context, path string) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("store: acquire snapshot lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("store: snapshot lock %s is held by another process", path+".lock")
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("store: open snapshot file: %w", err)
	}
	defer f.Close()

	return s.Load(f)
}
