package config

import (
	"bytes"
	"encoding/json"
)

// decodeJSONC 解析允许注释的 JSON 配置
// decodeJSONC decodes JSON that may contain // and /* */ comments.
func decodeJSONC(data []byte, v any) error {
	return json.Unmarshal(stripJSONComments(data), v)
}

// stripJSONComments 删除字符串字面量之外的注释，保留换行以便报错行号不变
// stripJSONComments removes comments outside string literals. Newlines inside
// comments are kept so decoder offsets still point at the right line.
func stripJSONComments(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '"':
			end := skipString(data, i)
			out.Write(data[i:end])
			i = end
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			nl := bytes.IndexByte(data[i:], '\n')
			if nl < 0 {
				return out.Bytes()
			}
			i += nl
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			end := bytes.Index(data[i+2:], []byte("*/"))
			if end < 0 {
				return out.Bytes()
			}
			body := data[i+2 : i+2+end]
			out.Write(bytes.Repeat([]byte{'\n'}, bytes.Count(body, []byte{'\n'})))
			i += end + 4
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes()
}

// skipString 返回从 data[start]（左引号）开始的字符串字面量之后的位置
func skipString(data []byte, start int) int {
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(data)
}
