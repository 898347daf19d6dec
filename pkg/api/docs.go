package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/schema": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["table"],
                "summary": "Table schema",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["table"],
                "summary": "Table statistics",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Open a session",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/api.SessionResponse"}}}
            }
        },
        "/sessions/{id}": {
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Close a session",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/records": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Create a record",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.FieldsRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/api.RecordResponse"}}, "400": {"description": "Bad Request"}}
            }
        },
        "/records/search": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Find records",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.SearchRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SearchResponse"}}, "400": {"description": "Bad Request"}}
            }
        },
        "/records/{n}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Read a record",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "integer", "name": "n", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RecordResponse"}}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Update a record",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "integer", "name": "n", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.FieldsRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Stale"}, "412": {"description": "Not locked"}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Delete a record",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "integer", "name": "n", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Stale"}, "412": {"description": "Not locked"}}
            }
        },
        "/records/{n}/lock": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["locks"],
                "summary": "Lock status",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "integer", "name": "n", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.LockResponse"}}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["locks"],
                "summary": "Lock a record",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "integer", "name": "n", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.LockResponse"}}, "409": {"description": "Stale"}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["locks"],
                "summary": "Unlock a record",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "integer", "name": "n", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "412": {"description": "Not locked"}}
            }
        }
    },
    "definitions": {
        "api.FieldsRequest": {
            "type": "object",
            "properties": {"fields": {"type": "array", "items": {"type": "string"}}}
        },
        "api.SearchRequest": {
            "type": "object",
            "properties": {"criteria": {"type": "array", "items": {"type": "string"}}}
        },
        "api.RecordResponse": {
            "type": "object",
            "properties": {
                "number": {"type": "integer"},
                "fields": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.SearchResponse": {
            "type": "object",
            "properties": {"records": {"type": "array", "items": {"type": "integer"}}}
        },
        "api.SessionResponse": {
            "type": "object",
            "properties": {"session_id": {"type": "string"}}
        },
        "api.LockResponse": {
            "type": "object",
            "properties": {
                "record": {"type": "integer"},
                "locked": {"type": "boolean"},
                "held": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "slotdb REST API",
	Description:      "REST API for slotdb, a record store with per-record locks over a fixed-layout file.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
