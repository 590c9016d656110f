// Package docs holds the OpenAPI description served at /api-docs.
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
        "/api/v1/auth/signin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.signInRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.signInResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/api/v1/auth/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Request a password reset token",
                "parameters": [
                    {"description": "Account email", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.forgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/api/v1/auth/verify-reset-token/{token}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Verify a password reset token",
                "parameters": [
                    {"type": "string", "description": "Raw reset token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.User"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/api/v1/auth/reset-password/{token}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Reset password",
                "parameters": [
                    {"type": "string", "description": "Raw reset token", "name": "token", "in": "path", "required": true},
                    {"description": "New password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.resetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.User"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/api/v1/auth/change-email": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Change email address",
                "parameters": [
                    {"description": "New email", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.changeEmailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.User"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/api/v1/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "parameters": [
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (default 10, max 100)", "name": "limit", "in": "query"},
                    {"enum": ["CUSTOMER", "STAFF", "ADMIN"], "type": "string", "description": "Filter by role", "name": "role", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.listUsersResponse"}}}]}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Create a user",
                "parameters": [
                    {"description": "Account details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.User"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/api/v1/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a user by id",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.User"}}}]}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update a user",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.Envelope"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.User"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Delete a user",
                "parameters": [
                    {"type": "integer", "description": "User id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "displayName": {"type": "string"},
                "role": {"type": "string", "enum": ["CUSTOMER", "STAFF", "ADMIN"]},
                "phoneNumber": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handler.Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "status": {"type": "string", "example": "success"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "handler.ErrorEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "status": {"type": "string", "example": "bad_request"},
                "message": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.signInRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "admin@example.com"},
                "password": {"type": "string", "example": "adminpassword"}
            }
        },
        "handler.signInResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        },
        "handler.forgotPasswordRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "customer@example.com"}
            }
        },
        "handler.resetPasswordRequest": {
            "type": "object",
            "properties": {
                "newPassword": {"type": "string", "example": "n3w-passw0rd"}
            }
        },
        "handler.changeEmailRequest": {
            "type": "object",
            "properties": {
                "newEmail": {"type": "string", "example": "new.address@example.com"}
            }
        },
        "handler.createUserRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "janedoe"},
                "email": {"type": "string", "example": "jane@example.com"},
                "password": {"type": "string", "example": "s3cure-pass"},
                "displayName": {"type": "string", "example": "Jane Doe"},
                "role": {"type": "string", "example": "CUSTOMER"},
                "phoneNumber": {"type": "string", "example": "081234567899"}
            }
        },
        "handler.updateUserRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "displayName": {"type": "string"},
                "role": {"type": "string"},
                "phoneNumber": {"type": "string"}
            }
        },
        "handler.listUsersResponse": {
            "type": "object",
            "properties": {
                "users": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Beauty Clinic API",
	Description:      "Authentication, password reset and account management for the clinic booking backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
