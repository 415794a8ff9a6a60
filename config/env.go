package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// 🌱 环境变量绑定
// =============================================================================
// 键名由前缀与各级 env 标签以下划线拼接，例如 AGENTSWARM_SWARM_AGENT_TIMEOUT。
// 字符串切片以逗号分隔；能力目录格式为 "role:spec1,spec2;role2:spec3"。

var (
	durationType = reflect.TypeOf(time.Duration(0))
	catalogType  = reflect.TypeOf([]RoleConfig(nil))
)

// bindEnv 用环境变量覆盖 cfg 中带 env 标签的字段
func bindEnv(cfg *Config, prefix string) error {
	return bindStruct(reflect.ValueOf(cfg).Elem(), prefix)
}

func bindStruct(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := bindStruct(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" || !field.CanSet() {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Type() {
	case durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	case catalogType:
		catalog, err := parseCatalog(raw)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(catalog))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(reflect.ValueOf(splitList(raw, ",")))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// parseCatalog 解析 "role:spec1,spec2;role2:spec3"
func parseCatalog(raw string) ([]RoleConfig, error) {
	var catalog []RoleConfig
	for _, entry := range splitList(raw, ";") {
		role, specs, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("catalog entry %q: want role:spec1,spec2", entry)
		}
		catalog = append(catalog, RoleConfig{
			Role:            strings.TrimSpace(role),
			Specializations: splitList(specs, ","),
		})
	}
	return catalog, nil
}

// splitList 按分隔符切分并去掉空白项
func splitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
