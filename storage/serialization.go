// Copyright 2025 Poiesic Systems
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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/ragchat/core"
)

// VectorMUS serializes float32 vectors as a length followed by fixed-width components.
var VectorMUS = vectorMUS{}

// VectorRecordMUS serializes core.VectorRecord. Timestamps are stored as Unix microseconds.
var VectorRecordMUS = vectorRecordMUS{}

// CollectionInfoMUS serializes CollectionInfo.
var CollectionInfoMUS = collectionInfoMUS{}

// CollectionInfo is the metadata durable backends keep per collection.
type CollectionInfo struct {
	Name      string
	Dimension int // 0 until the first record is written
	CreatedAt time.Time
}

type vectorMUS struct{}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length*4 > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type vectorRecordMUS struct{}

func (vectorRecordMUS) Size(r core.VectorRecord) (size int) {
	size = ord.String.Size(r.ID)
	size += ord.String.Size(r.Collection)
	size += ord.String.Size(r.Text)
	size += VectorMUS.Size(r.Vector)
	size += varint.Uint64.Size(r.Seq)
	return size + varint.Int64.Size(r.InsertedAt.UnixMicro())
}

func (vectorRecordMUS) Marshal(r core.VectorRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.ID, bs)
	n += ord.String.Marshal(r.Collection, bs[n:])
	n += ord.String.Marshal(r.Text, bs[n:])
	n += VectorMUS.Marshal(r.Vector, bs[n:])
	n += varint.Uint64.Marshal(r.Seq, bs[n:])
	return n + varint.Int64.Marshal(r.InsertedAt.UnixMicro(), bs[n:])
}

func (vectorRecordMUS) Unmarshal(bs []byte) (r core.VectorRecord, n int, err error) {
	var n1 int
	if r.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	r.Collection, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Seq, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	r.InsertedAt = time.UnixMicro(micros).UTC()
	return
}

type collectionInfoMUS struct{}

func (collectionInfoMUS) Size(c CollectionInfo) (size int) {
	size = ord.String.Size(c.Name)
	size += varint.Int.Size(c.Dimension)
	return size + varint.Int64.Size(c.CreatedAt.UnixMicro())
}

func (collectionInfoMUS) Marshal(c CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(c.Name, bs)
	n += varint.Int.Marshal(c.Dimension, bs[n:])
	return n + varint.Int64.Marshal(c.CreatedAt.UnixMicro(), bs[n:])
}

func (collectionInfoMUS) Unmarshal(bs []byte) (c CollectionInfo, n int, err error) {
	var n1 int
	if c.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	c.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	c.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

// MarshalVector serializes a vector to bytes.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, VectorMUS.Size(v))
	VectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes a vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	v, _, err := VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	return v, nil
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(record *core.VectorRecord) []byte {
	buf := make([]byte, VectorRecordMUS.Size(*record))
	VectorRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	record, _, err := VectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalCollectionInfo serializes CollectionInfo to bytes.
func MarshalCollectionInfo(info *CollectionInfo) []byte {
	buf := make([]byte, CollectionInfoMUS.Size(*info))
	CollectionInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalCollectionInfo deserializes CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*CollectionInfo, error) {
	info, _, err := CollectionInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: collection: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}
