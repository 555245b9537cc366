package feoblog

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the FeoBlog protobuf schema. Only the fields feedsync
// reads or writes are listed; everything else is skipped on decode.
const (
	itemTimestampField = 1
	itemOffsetField    = 2
	itemPostField      = 3
	itemProfileField   = 4

	postTitleField = 1
	postBodyField  = 2

	profileDisplayNameField = 1
	profileAboutField       = 2

	listItemsField       = 1
	listNoMoreItemsField = 2

	entryUserIDField    = 1
	entrySignatureField = 2
	entryTimestampField = 3
	entryItemTypeField  = 4

	bytesField = 1
)

// ErrMalformedRecord indicates protobuf bytes that could not be decoded.
var ErrMalformedRecord = errors.New("malformed protobuf record")

// ItemType is the kind of record an ItemListEntry points at.
type ItemType int32

const (
	ItemTypeUnknown ItemType = 0
	ItemTypePost    ItemType = 1
	ItemTypeProfile ItemType = 2
	ItemTypeComment ItemType = 3
)

// Item is a signed FeoBlog record. Exactly one of Post and Profile is set
// for the records feedsync writes. Other item kinds decode with both nil.
type Item struct {
	TimestampMsUTC   int64
	UTCOffsetMinutes int32
	Post             *Post
	Profile          *Profile
}

// Post is the post payload of an Item.
type Post struct {
	Title string
	Body  string
}

// Profile is the profile payload of an Item. Servers and follows are not
// modelled.
type Profile struct {
	DisplayName string
	About       string
}

// ItemListEntry is one row of a user's item listing.
type ItemListEntry struct {
	UserID         UserID
	Signature      Signature
	TimestampMsUTC int64
	ItemType       ItemType
}

// ItemList is one page of a user's item listing, newest first.
type ItemList struct {
	Items       []ItemListEntry
	NoMoreItems bool
}

// Marshal encodes the item. The output is deterministic, which matters
// because the signature covers these exact bytes.
func (it *Item) Marshal() []byte {
	var b []byte
	if it.TimestampMsUTC != 0 {
		b = protowire.AppendTag(b, itemTimestampField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(it.TimestampMsUTC))
	}
	if it.UTCOffsetMinutes != 0 {
		b = protowire.AppendTag(b, itemOffsetField, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(it.UTCOffsetMinutes)))
	}
	switch {
	case it.Post != nil:
		var msg []byte
		msg = appendString(msg, postTitleField, it.Post.Title)
		msg = appendString(msg, postBodyField, it.Post.Body)
		b = appendMessage(b, itemPostField, msg)
	case it.Profile != nil:
		var msg []byte
		msg = appendString(msg, profileDisplayNameField, it.Profile.DisplayName)
		msg = appendString(msg, profileAboutField, it.Profile.About)
		b = appendMessage(b, itemProfileField, msg)
	}
	return b
}

// UnmarshalItem decodes an Item.
func UnmarshalItem(b []byte) (*Item, error) {
	it := &Item{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == itemTimestampField && typ == protowire.VarintType:
			it.TimestampMsUTC = int64(n)
		case num == itemOffsetField && typ == protowire.VarintType:
			it.UTCOffsetMinutes = int32(protowire.DecodeZigZag(n))
		case num == itemPostField && typ == protowire.BytesType:
			post := &Post{}
			if err := walk(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if typ != protowire.BytesType {
					return nil
				}
				switch num {
				case postTitleField:
					post.Title = string(v)
				case postBodyField:
					post.Body = string(v)
				}
				return nil
			}); err != nil {
				return fmt.Errorf("post: %w", err)
			}
			it.Post, it.Profile = post, nil
		case num == itemProfileField && typ == protowire.BytesType:
			profile := &Profile{}
			if err := walk(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if typ != protowire.BytesType {
					return nil
				}
				switch num {
				case profileDisplayNameField:
					profile.DisplayName = string(v)
				case profileAboutField:
					profile.About = string(v)
				}
				return nil
			}); err != nil {
				return fmt.Errorf("profile: %w", err)
			}
			it.Post, it.Profile = nil, profile
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Marshal encodes the list. Servers send these; feedsync only marshals
// them in tests.
func (l *ItemList) Marshal() []byte {
	var b []byte
	for _, e := range l.Items {
		var msg []byte
		msg = appendMessage(msg, entryUserIDField, appendBytes(nil, bytesField, e.UserID[:]))
		msg = appendMessage(msg, entrySignatureField, appendBytes(nil, bytesField, e.Signature[:]))
		msg = protowire.AppendTag(msg, entryTimestampField, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(e.TimestampMsUTC))
		if e.ItemType != ItemTypeUnknown {
			msg = protowire.AppendTag(msg, entryItemTypeField, protowire.VarintType)
			msg = protowire.AppendVarint(msg, uint64(e.ItemType))
		}
		b = appendMessage(b, listItemsField, msg)
	}
	if l.NoMoreItems {
		b = protowire.AppendTag(b, listNoMoreItemsField, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

// UnmarshalItemList decodes an ItemList.
func UnmarshalItemList(b []byte) (*ItemList, error) {
	list := &ItemList{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == listItemsField && typ == protowire.BytesType:
			entry, err := unmarshalEntry(v)
			if err != nil {
				return fmt.Errorf("item %d: %w", len(list.Items), err)
			}
			list.Items = append(list.Items, entry)
		case num == listNoMoreItemsField && typ == protowire.VarintType:
			list.NoMoreItems = n != 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func unmarshalEntry(b []byte) (ItemListEntry, error) {
	var e ItemListEntry
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == entryUserIDField && typ == protowire.BytesType:
			raw, err := innerBytes(v)
			if err != nil {
				return err
			}
			if len(raw) != len(e.UserID) {
				return fmt.Errorf("%w: user id is %d bytes", ErrMalformedRecord, len(raw))
			}
			copy(e.UserID[:], raw)
		case num == entrySignatureField && typ == protowire.BytesType:
			raw, err := innerBytes(v)
			if err != nil {
				return err
			}
			if len(raw) != len(e.Signature) {
				return fmt.Errorf("%w: signature is %d bytes", ErrMalformedRecord, len(raw))
			}
			copy(e.Signature[:], raw)
		case num == entryTimestampField && typ == protowire.VarintType:
			e.TimestampMsUTC = int64(n)
		case num == entryItemTypeField && typ == protowire.VarintType:
			e.ItemType = ItemType(n)
		}
		return nil
	})
	return e, err
}

// innerBytes extracts the bytes field of a UserID or Signature message.
func innerBytes(msg []byte) ([]byte, error) {
	var out []byte
	err := walk(msg, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num == bytesField && typ == protowire.BytesType {
			out = v
		}
		return nil
	})
	return out, err
}

// walk calls fn for every field in b. Varint values arrive in n, length
// delimited values in v. Fixed-width and group fields are skipped.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(tagLen))
		}
		b = b[tagLen:]

		switch typ {
		case protowire.VarintType:
			n, l := protowire.ConsumeVarint(b)
			if l < 0 {
				return fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(l))
			}
			b = b[l:]
			if err := fn(num, typ, nil, n); err != nil {
				return err
			}
		case protowire.BytesType:
			v, l := protowire.ConsumeBytes(b)
			if l < 0 {
				return fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(l))
			}
			b = b[l:]
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
		default:
			l := protowire.ConsumeFieldValue(num, typ, b)
			if l < 0 {
				return fmt.Errorf("%w: %w", ErrMalformedRecord, protowire.ParseError(l))
			}
			b = b[l:]
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
