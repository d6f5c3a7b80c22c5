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
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// Field order is the wire format. Append new fields at the end only.

// TechnicianMUS serializes core.Technician values.
var TechnicianMUS = technicianMUS{}

// BookingMUS serializes core.Booking values.
var BookingMUS = bookingMUS{}

type technicianMUS struct{}

func (technicianMUS) Size(t core.Technician) (size int) {
	size += ord.String.Size(t.ID)
	size += ord.String.Size(t.Name)
	size += ord.String.Size(t.Email)
	size += ord.String.Size(t.Phone)
	size += ord.String.Size(t.Service)
	size += ord.String.Size(t.Description)
	size += sizeStrings(t.Specialties)
	size += sizeStrings(t.Languages)
	size += ord.String.Size(t.Location)
	size += ord.String.Size(t.Address)
	size += varint.Uint64.Size(math.Float64bits(t.Rating))
	size += varint.Int.Size(t.ReviewCount)
	size += ord.Bool.Size(t.Available)
	size += sizeFloats(t.Embedding)
	size += varint.Uint64.Size(t.EmbeddingHash)
	size += sizeTime(t.CreatedAt)
	size += sizeTime(t.UpdatedAt)
	return
}

func (technicianMUS) Marshal(t core.Technician, bs []byte) (n int) {
	n += ord.String.Marshal(t.ID, bs[n:])
	n += ord.String.Marshal(t.Name, bs[n:])
	n += ord.String.Marshal(t.Email, bs[n:])
	n += ord.String.Marshal(t.Phone, bs[n:])
	n += ord.String.Marshal(t.Service, bs[n:])
	n += ord.String.Marshal(t.Description, bs[n:])
	n += marshalStrings(t.Specialties, bs[n:])
	n += marshalStrings(t.Languages, bs[n:])
	n += ord.String.Marshal(t.Location, bs[n:])
	n += ord.String.Marshal(t.Address, bs[n:])
	n += varint.Uint64.Marshal(math.Float64bits(t.Rating), bs[n:])
	n += varint.Int.Marshal(t.ReviewCount, bs[n:])
	n += ord.Bool.Marshal(t.Available, bs[n:])
	n += marshalFloats(t.Embedding, bs[n:])
	n += varint.Uint64.Marshal(t.EmbeddingHash, bs[n:])
	n += marshalTime(t.CreatedAt, bs[n:])
	n += marshalTime(t.UpdatedAt, bs[n:])
	return
}

func (technicianMUS) Unmarshal(bs []byte) (t core.Technician, n int, err error) {
	r := reader{bs: bs}
	t.ID = r.string()
	t.Name = r.string()
	t.Email = r.string()
	t.Phone = r.string()
	t.Service = r.string()
	t.Description = r.string()
	t.Specialties = r.strings()
	t.Languages = r.strings()
	t.Location = r.string()
	t.Address = r.string()
	t.Rating = math.Float64frombits(r.uint64())
	t.ReviewCount = r.int()
	t.Available = r.bool()
	t.Embedding = r.floats()
	t.EmbeddingHash = r.uint64()
	t.CreatedAt = r.time()
	t.UpdatedAt = r.time()
	return t, r.n, r.err
}

type bookingMUS struct{}

func (bookingMUS) Size(b core.Booking) (size int) {
	size += ord.String.Size(b.ID)
	size += ord.String.Size(b.TechnicianID)
	size += ord.String.Size(b.CustomerID)
	size += ord.String.Size(b.CustomerName)
	size += ord.String.Size(b.CustomerPhone)
	size += ord.String.Size(b.CustomerAddress)
	size += ord.String.Size(b.Service)
	size += ord.String.Size(string(b.Status))
	size += varint.Int.Size(b.Rating)
	size += sizeTime(b.CreatedAt)
	size += sizeTime(b.UpdatedAt)
	return
}

func (bookingMUS) Marshal(b core.Booking, bs []byte) (n int) {
	n += ord.String.Marshal(b.ID, bs[n:])
	n += ord.String.Marshal(b.TechnicianID, bs[n:])
	n += ord.String.Marshal(b.CustomerID, bs[n:])
	n += ord.String.Marshal(b.CustomerName, bs[n:])
	n += ord.String.Marshal(b.CustomerPhone, bs[n:])
	n += ord.String.Marshal(b.CustomerAddress, bs[n:])
	n += ord.String.Marshal(b.Service, bs[n:])
	n += ord.String.Marshal(string(b.Status), bs[n:])
	n += varint.Int.Marshal(b.Rating, bs[n:])
	n += marshalTime(b.CreatedAt, bs[n:])
	n += marshalTime(b.UpdatedAt, bs[n:])
	return
}

func (bookingMUS) Unmarshal(bs []byte) (b core.Booking, n int, err error) {
	r := reader{bs: bs}
	b.ID = r.string()
	b.TechnicianID = r.string()
	b.CustomerID = r.string()
	b.CustomerName = r.string()
	b.CustomerPhone = r.string()
	b.CustomerAddress = r.string()
	b.Service = r.string()
	b.Status = core.BookingStatus(r.string())
	b.Rating = r.int()
	b.CreatedAt = r.time()
	b.UpdatedAt = r.time()
	return b, r.n, r.err
}

// MarshalTechnician serializes a Technician to bytes.
func MarshalTechnician(t *core.Technician) []byte {
	buf := make([]byte, TechnicianMUS.Size(*t))
	TechnicianMUS.Marshal(*t, buf)
	return buf
}

// UnmarshalTechnician deserializes a Technician from bytes.
func UnmarshalTechnician(data []byte) (*core.Technician, error) {
	t, _, err := TechnicianMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: technician: %w", ErrSerializationFailed, err)
	}
	return &t, nil
}

// MarshalBooking serializes a Booking to bytes.
func MarshalBooking(b *core.Booking) []byte {
	buf := make([]byte, BookingMUS.Size(*b))
	BookingMUS.Marshal(*b, buf)
	return buf
}

// UnmarshalBooking deserializes a Booking from bytes.
func UnmarshalBooking(data []byte) (*core.Booking, error) {
	b, _, err := BookingMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: booking: %w", ErrSerializationFailed, err)
	}
	return &b, nil
}

// MarshalID serializes an index value (a record ID) to bytes.
func MarshalID(id string) []byte {
	buf := make([]byte, ord.String.Size(id))
	ord.String.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an index value.
func UnmarshalID(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrTruncatedData
	}
	id, _, err := ord.String.Unmarshal(data)
	return id, err
}

// Lists are a varint length followed by the elements.

func sizeStrings(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func sizeFloats(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

func marshalFloats(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return
}

// Times are stored as Unix microseconds in UTC.

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

// reader decodes fields in order and remembers the first error, after which
// every read is a no-op returning the zero value.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) advance(m int, err error) bool {
	if err != nil {
		r.err = err
		return false
	}
	r.n += m
	return true
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, m, err := ord.String.Unmarshal(r.bs[r.n:])
	if !r.advance(m, err) {
		return ""
	}
	return v
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, m, err := ord.Bool.Unmarshal(r.bs[r.n:])
	if !r.advance(m, err) {
		return false
	}
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, m, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	if !r.advance(m, err) {
		return 0
	}
	return v
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, m, err := varint.Int.Unmarshal(r.bs[r.n:])
	if !r.advance(m, err) {
		return 0
	}
	return v
}

func (r *reader) length() int {
	l := r.int()
	if r.err == nil && (l < 0 || l > len(r.bs)-r.n) {
		r.err = ErrTruncatedData
		return 0
	}
	return l
}

func (r *reader) strings() []string {
	l := r.length()
	if r.err != nil || l == 0 {
		return nil
	}
	out := make([]string, l)
	for i := range out {
		out[i] = r.string()
	}
	if r.err != nil {
		return nil
	}
	return out
}

func (r *reader) floats() []float32 {
	l := r.length()
	if r.err != nil || l == 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		if r.err != nil {
			return nil
		}
		v, m, err := varint.Uint32.Unmarshal(r.bs[r.n:])
		if !r.advance(m, err) {
			return nil
		}
		out[i] = math.Float32frombits(v)
	}
	return out
}

func (r *reader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, m, err := varint.Int64.Unmarshal(r.bs[r.n:])
	if !r.advance(m, err) {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}
