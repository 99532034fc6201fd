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


package badger

const (
	collectionPrefix = "vcol:"
	recordPrefix     = "vrec:"
	recordSeq        = "vrecseq"
)

// makeCollectionKey generates the metadata key of a collection.
// Format: vcol:name
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makeRecordPrefix generates the prefix shared by every record of a collection.
// Format: vrec:name NUL. Collection names cannot contain NUL, so one
// collection's prefix never matches another collection's records.
func makeRecordPrefix(name string) []byte {
	return []byte(recordPrefix + name + "\x00")
}

// makeRecordKey generates the key of a record.
// Format: vrec:name NUL id
func makeRecordKey(name, id string) []byte {
	return append(makeRecordPrefix(name), id...)
}
