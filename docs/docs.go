// Package docs holds the generated swagger spec. Code generated by swag. DO NOT EDIT.
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
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/user/me": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Update own profile",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Delete own account",
                "responses": {"204": {"description": "No Content"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/admin/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "List user accounts",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Create a user account",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}
            }
        },
        "/admin/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Get a user account",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Update a user account",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Delete a user account",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/users/{id}/ban": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Ban a user account",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/users/{id}/restore": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Restore a banned user account",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/books": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["books"],
                "summary": "List books",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["books"],
                "summary": "Create a book",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/books/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["books"],
                "summary": "Get a book",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["books"],
                "summary": "Update a book",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["books"],
                "summary": "Delete a book",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/books/{id}/borrow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["borrow"],
                "summary": "Borrow a book",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/books/{id}/order": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["borrow"],
                "summary": "Order a book",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}}
            }
        },
        "/books/return/{recordId}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["borrow"],
                "summary": "Return a borrowed book",
                "parameters": [{"type": "string", "name": "recordId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/books/reports": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["borrow"],
                "summary": "Borrow ledger report",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/data/{type}/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["transfer"],
                "summary": "Export a collection as a spreadsheet",
                "parameters": [{"enum": ["users", "admins", "books", "borrowers"], "type": "string", "name": "type", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/data/{type}/import": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["transfer"],
                "summary": "Import a collection from a spreadsheet",
                "parameters": [{"enum": ["users", "admins", "books", "borrowers"], "type": "string", "name": "type", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
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
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Library System API",
	Description:      "REST backend for library management: accounts, catalog, borrowing and bulk transfer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
