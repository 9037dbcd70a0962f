// internal/websocket/utils.go
package websocket

import "encoding/json"

// MapToStruct converts decoded message data into a typed request.
func MapToStruct(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
