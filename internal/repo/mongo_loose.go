package repo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Документы, созданные через multipart-формы, хранят числа и comments строками,
// а JSON-клиенты иногда присылали zipcode числом. Типы ниже читают оба варианта
// и пишут значения в каноническом виде.

// looseString принимает строку или число.
type looseString string

func (s *looseString) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		*s = looseString(rv.StringValue())
	case bson.TypeInt32:
		*s = looseString(strconv.FormatInt(int64(rv.Int32()), 10))
	case bson.TypeInt64:
		*s = looseString(strconv.FormatInt(rv.Int64(), 10))
	case bson.TypeDouble:
		*s = looseString(strconv.FormatFloat(rv.Double(), 'f', -1, 64))
	case bson.TypeNull, bson.TypeUndefined:
		*s = ""
	default:
		return fmt.Errorf("decode %s as string", t)
	}
	return nil
}

// looseInt принимает целое, double без дробной части или строку с целым.
// Нечисловая строка читается как 0.
type looseInt int64

func (n *looseInt) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeInt32:
		*n = looseInt(rv.Int32())
	case bson.TypeInt64:
		*n = looseInt(rv.Int64())
	case bson.TypeDouble:
		*n = looseInt(math.Trunc(rv.Double()))
	case bson.TypeString:
		v, err := strconv.ParseInt(strings.TrimSpace(rv.StringValue()), 10, 64)
		if err != nil {
			v = 0
		}
		*n = looseInt(v)
	case bson.TypeNull, bson.TypeUndefined:
		*n = 0
	default:
		return fmt.Errorf("decode %s as integer", t)
	}
	return nil
}

// looseFloat — необязательное число. Пустая или нечисловая строка читается как отсутствие значения.
type looseFloat struct {
	v *float64
}

func (f looseFloat) IsZero() bool { return f.v == nil }

func (f looseFloat) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if f.v == nil {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(*f.v)
}

func (f *looseFloat) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	var v float64
	switch t {
	case bson.TypeDouble:
		v = rv.Double()
	case bson.TypeInt32:
		v = float64(rv.Int32())
	case bson.TypeInt64:
		v = float64(rv.Int64())
	case bson.TypeString:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(rv.StringValue()), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			f.v = nil
			return nil
		}
		v = parsed
	case bson.TypeNull, bson.TypeUndefined:
		f.v = nil
		return nil
	default:
		return fmt.Errorf("decode %s as number", t)
	}
	f.v = &v
	return nil
}

// looseComments принимает массив или JSON-массив в строке.
type looseComments []commentDocument

func (c *looseComments) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeArray:
		var cs []commentDocument
		if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&cs); err != nil {
			return fmt.Errorf("decode comments: %w", err)
		}
		*c = cs
	case bson.TypeString:
		raw := bson.RawValue{Type: t, Value: data}.StringValue()
		var cs []commentDocument
		if err := json.Unmarshal([]byte(raw), &cs); err != nil {
			*c = nil
			return nil
		}
		*c = cs
	case bson.TypeNull, bson.TypeUndefined:
		*c = nil
	default:
		return fmt.Errorf("decode %s as comments", t)
	}
	return nil
}
