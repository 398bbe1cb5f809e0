package service

import (
	"encoding/json"
	"strings"
)

// extractEnvelopeJSON devuelve el primer objeto JSON balanceado que trae la clave "reply".
// Los objetos sueltos que el modelo mezcla en la prosa se saltean.
func extractEnvelopeJSON(input string) string {
	for _, obj := range jsonObjects(input) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(obj), &fields); err != nil {
			continue
		}
		if _, ok := fields["reply"]; ok {
			return obj
		}
	}
	return ""
}

// hasJSONObject indica si el texto contiene algun objeto JSON valido.
func hasJSONObject(input string) bool {
	for _, obj := range jsonObjects(input) {
		if json.Valid([]byte(obj)) {
			return true
		}
	}
	return false
}

// jsonObjects lista, en orden, los objetos de nivel superior con llaves balanceadas.
// Las llaves dentro de strings no cuentan.
func jsonObjects(input string) []string {
	var out []string
	for i := 0; i < len(input); {
		rel := strings.IndexByte(input[i:], '{')
		if rel == -1 {
			break
		}
		start := i + rel
		end, ok := balancedEnd(input, start)
		if !ok {
			// un objeto sin cerrar puede contener uno completo
			i = start + 1
			continue
		}
		out = append(out, input[start:end])
		i = end
	}
	return out
}

// balancedEnd devuelve la posicion siguiente a la llave que cierra la abierta en start.
func balancedEnd(input string, start int) (int, bool) {
	inString, escape := false, false
	depth := 0
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
