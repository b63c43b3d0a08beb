package middleware

import (
	"bytes"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/valyala/fastjson"
)

// maxInspectedBody caps how much of a body is parsed for inspection.
const maxInspectedBody = 1 << 20

var jsonParsers fastjson.ParserPool

// RequestFromCtx copies everything the detector looks at out of the fiber
// context. Values are copied because fasthttp reuses its buffers once the
// handler returns, while audit events outlive the request.
func RequestFromCtx(c *fiber.Ctx) *types.Request {
	req := &types.Request{
		IP:      utils.CopyString(c.IP()),
		Path:    utils.CopyString(c.Path()),
		Method:  utils.CopyString(c.Method()),
		URL:     utils.CopyString(c.OriginalURL()),
		Query:   queryArgs(c),
		Params:  routeParams(c),
		Headers: requestHeaders(c),
		Body:    requestBody(c),
	}
	if userID, ok := c.Locals(common.UserIDContextKey).(string); ok {
		req.UserID = userID
	}
	if traceID, ok := c.Locals(common.TraceIdKey).(string); ok {
		req.TraceID = traceID
	}
	return req
}

func queryArgs(c *fiber.Ctx) map[string]string {
	args := c.Context().QueryArgs()
	if args.Len() == 0 {
		return nil
	}
	query := make(map[string]string, args.Len())
	args.VisitAll(func(k, v []byte) {
		if _, seen := query[string(k)]; !seen {
			query[string(k)] = string(v)
		}
	})
	return query
}

func routeParams(c *fiber.Ctx) map[string]string {
	all := c.AllParams()
	if len(all) == 0 {
		return nil
	}
	params := make(map[string]string, len(all))
	for k, v := range all {
		params[utils.CopyString(k)] = utils.CopyString(v)
	}
	return params
}

// requestHeaders joins repeated headers with ", ".
func requestHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(k, v []byte) {
		key := string(k)
		if prev, ok := headers[key]; ok {
			headers[key] = prev + ", " + string(v)
			return
		}
		headers[key] = string(v)
	})
	return headers
}

func requestBody(c *fiber.Ctx) map[string]any {
	contentType := c.Request().Header.ContentType()
	switch {
	case bytes.HasPrefix(contentType, []byte(fiber.MIMEApplicationForm)):
		args := c.Request().PostArgs()
		if args.Len() == 0 {
			return nil
		}
		body := make(map[string]any, args.Len())
		args.VisitAll(func(k, v []byte) {
			if _, seen := body[string(k)]; !seen {
				body[string(k)] = string(v)
			}
		})
		return body
	case bytes.HasPrefix(contentType, []byte(fiber.MIMEMultipartForm)):
		form, err := c.MultipartForm()
		if err != nil || len(form.Value) == 0 {
			return nil
		}
		body := make(map[string]any, len(form.Value))
		for k, values := range form.Value {
			items := make([]string, len(values))
			copy(items, values)
			body[k] = items
		}
		return body
	}

	raw := c.Body()
	if len(raw) == 0 {
		return nil
	}
	if len(raw) > maxInspectedBody {
		return map[string]any{"raw": string(raw[:maxInspectedBody])}
	}
	if bytes.HasPrefix(contentType, []byte(fiber.MIMEApplicationJSON)) {
		if body, ok := parseJSONBody(raw); ok {
			return body
		}
	}
	return map[string]any{"raw": string(raw)}
}

// parseJSONBody converts a JSON document into plain Go values. Documents
// that are not objects are nested under "body".
func parseJSONBody(raw []byte) (map[string]any, bool) {
	p := jsonParsers.Get()
	defer jsonParsers.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, false
	}
	if v.Type() == fastjson.TypeObject {
		body, _ := jsonValue(v).(map[string]any)
		return body, true
	}
	return map[string]any{"body": jsonValue(v)}, true
}

func jsonValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]any, obj.Len())
		obj.Visit(func(k []byte, child *fastjson.Value) {
			m[string(k)] = jsonValue(child)
		})
		return m
	case fastjson.TypeArray:
		items, _ := v.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = jsonValue(item)
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
