package utility

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransformTagConfig chứa cấu hình parse từ struct tag `transform` của DTO.
// Format: "[type][,map=<field>][,optional]"
// Type hỗ trợ:
//   - str_objectid: string → primitive.ObjectID
//   - str_objectid_ptr: string → *primitive.ObjectID
//   - str_int64: string/number → int64
//   - str_bool: string/bool → bool
type TransformTagConfig struct {
	Type     string
	MapTo    string
	Optional bool
}

// ParseTransformTag parse tag transform thành config.
func ParseTransformTag(tag string) (*TransformTagConfig, error) {
	config := &TransformTagConfig{}
	if tag == "" {
		return config, nil
	}

	parts := strings.Split(tag, ",")
	config.Type = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "optional" {
			config.Optional = true
			continue
		}
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 && strings.TrimSpace(kv[0]) == "map" {
			config.MapTo = strings.TrimSpace(kv[1])
		}
	}
	return config, nil
}

// TransformFieldValue chuyển giá trị field DTO sang kiểu của field Model theo config.
func TransformFieldValue(value interface{}, config *TransformTagConfig, targetFieldType reflect.Type) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if strValue, ok := value.(string); ok && strValue == "" {
		// Chuỗi rỗng coi như không gửi
		return nil, nil
	}

	switch config.Type {
	case "str_objectid":
		return toObjectID(value)
	case "str_objectid_ptr":
		id, err := toObjectID(value)
		if err != nil {
			return nil, err
		}
		if id.IsZero() {
			return nil, nil
		}
		return &id, nil
	case "str_int64":
		return toInt64(value)
	case "str_bool":
		return toBool(value)
	default:
		return value, nil
	}
}

func toObjectID(value interface{}) (primitive.ObjectID, error) {
	strValue, ok := value.(string)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("giá trị không phải string: %T", value)
	}
	if strValue == "" {
		return primitive.NilObjectID, nil
	}
	objID, err := primitive.ObjectIDFromHex(strValue)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("không thể convert '%s' sang ObjectID: %w", strValue, err)
	}
	return objID, nil
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("không thể convert %T sang int64", value)
	}
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("không thể convert %T sang bool", value)
	}
}
