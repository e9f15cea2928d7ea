// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/api/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "User registration details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "429": {"description": "Too Many Requests", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        },
        "/admin/getAllUsers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        },
        "/admin/getUsers/{userId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Get user by id",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        },
        "/admin/update/{userId}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Update user",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "userId", "in": "path", "required": true},
                    {"description": "New profile", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        },
        "/admin/delete/{userId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Delete user",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        },
        "/adminuser/getMyProfile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.Outcome"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ports.Outcome"}}
                }
            }
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "USER"]},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "USER"]}
            }
        },
        "handler.updateUserRequest": {
            "type": "object",
            "required": ["email", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "address": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "USER"]}
            }
        },
        "ports.Outcome": {
            "type": "object",
            "properties": {
                "statusCode": {"type": "integer"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "token": {"type": "string"},
                "role": {"type": "string"},
                "expirationTime": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"},
                "userList": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "User Management API",
	Description:      "Registration, login and administrative user management.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
