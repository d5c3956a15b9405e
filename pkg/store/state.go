/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/filter"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/log"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

const (
	BucketPrefix  = "capture_"
	RecordsBucket = "records"
	CaptureKey    = "capture"
	ChannelsKey   = "channels"
)

// Capture describes one stored decoding session
type Capture struct {
	Name    string          `json:"name"`
	Origin  token.Timestamp `json:"origin"`
	Base    int             `json:"base"`
	Records int             `json:"records"`
	Created time.Time       `json:"created"`
}

// State keeps decoded records and channel tables, one bucket per capture
type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening record database %s: %w", path, err)
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

func (s *State) Close() {
	s.DB.Close()
}

func BucketName(capture string) string {
	return fmt.Sprintf("%s%s", BucketPrefix, capture)
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *State) bucket(tx *bbolt.Tx, capture string) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(BucketName(capture)))
	if b == nil {
		return nil, ErrBucketNotFound{Name: BucketName(capture)}
	}
	return b, nil
}

// CreateCapture creates the capture bucket, an existing capture is emptied
func (s *State) CreateCapture(c *Capture) error {
	log.Debug("Creating capture: %s", c.Name)
	if c.Created.IsZero() {
		c.Created = time.Now().UTC()
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		name := []byte(BucketName(c.Name))
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket([]byte(RecordsBucket)); err != nil {
			return err
		}
		return putYaml(b, CaptureKey, c)
	})
}

func (s *State) DeleteCapture(name string) error {
	log.Debug("Deleting capture: %s", name)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(BucketName(name))); err != nil {
			if err == bbolt.ErrBucketNotFound {
				return ErrBucketNotFound{Name: BucketName(name)}
			}
			return err
		}
		return nil
	})
}

func putYaml(b *bbolt.Bucket, key string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func (s *State) updateCapture(c *Capture) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, c.Name)
		if err != nil {
			return err
		}
		return putYaml(b, CaptureKey, c)
	})
}

func (s *State) GetCapture(name string) (*Capture, error) {
	c := &Capture{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, name)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(b.Get([]byte(CaptureKey)), c)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// GetAllCaptures returns the stored captures sorted by name
func (s *State) GetAllCaptures() ([]*Capture, error) {
	var captures []*Capture
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			if !strings.HasPrefix(string(name), BucketPrefix) {
				return nil
			}
			c := &Capture{}
			if err := yaml.Unmarshal(b.Get([]byte(CaptureKey)), c); err != nil {
				log.Error("Error while unmarshalling capture %s: %s", name, err)
				return err
			}
			captures = append(captures, c)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.Slice(captures, func(i, j int) bool { return captures[i].Name < captures[j].Name })
	return captures, nil
}

// PutRecords stores records under their sequence numbers and updates the capture record count
func (s *State) PutRecords(capture string, records []*analyzer.Record) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, capture)
		if err != nil {
			return err
		}
		rb := b.Bucket([]byte(RecordsBucket))
		added := 0
		for _, r := range records {
			data, err := yaml.Marshal(r)
			if err != nil {
				return err
			}
			key := uint64ToByte(r.Seq)
			if rb.Get(key) == nil {
				added++
			}
			if err := rb.Put(key, data); err != nil {
				return err
			}
		}
		c := &Capture{}
		if err := yaml.Unmarshal(b.Get([]byte(CaptureKey)), c); err != nil {
			return err
		}
		c.Records += added
		return putYaml(b, CaptureKey, c)
	})
}

func (s *State) GetRecord(capture string, seq uint64) (*analyzer.Record, error) {
	r := &analyzer.Record{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, capture)
		if err != nil {
			return err
		}
		data := b.Bucket([]byte(RecordsBucket)).Get(uint64ToByte(seq))
		if data == nil {
			return ErrRecordNotFound{Capture: capture, Seq: seq}
		}
		return yaml.Unmarshal(data, r)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Query selects stored records
type Query struct {
	// After skips records with a sequence number up to and including After
	After uint64
	// Limit of 0 means no limit
	Limit  int
	Filter *filter.Filter
}

// GetRecords returns records in sequence order
func (s *State) GetRecords(capture string, q Query) ([]*analyzer.Record, error) {
	var records []*analyzer.Record
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, capture)
		if err != nil {
			return err
		}
		cur := b.Bucket([]byte(RecordsBucket)).Cursor()
		for k, v := cur.Seek(uint64ToByte(q.After + 1)); k != nil; k, v = cur.Next() {
			if err := s.Err(); err != nil {
				return err
			}
			r := &analyzer.Record{}
			if err := yaml.Unmarshal(v, r); err != nil {
				return err
			}
			ok, err := q.Filter.Match(r)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			records = append(records, r)
			if q.Limit > 0 && len(records) >= q.Limit {
				break
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// SetChannels stores a snapshot of the channel table
func (s *State) SetChannels(capture string, entries []l2cap.Entry) error {
	log.Debug("Setting channel table: capture: %s entries: %d", capture, len(entries))
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, capture)
		if err != nil {
			return err
		}
		return putYaml(b, ChannelsKey, entries)
	})
}

func (s *State) GetChannels(capture string) ([]l2cap.Entry, error) {
	var entries []l2cap.Entry
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, capture)
		if err != nil {
			return err
		}
		data := b.Get([]byte(ChannelsKey))
		if data == nil {
			return nil
		}
		return yaml.Unmarshal(data, &entries)
	}); err != nil {
		return nil, err
	}
	return entries, nil
}
