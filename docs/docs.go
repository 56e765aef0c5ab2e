// Package docs holds the Swagger document served at /swagger/*.
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
    "securityDefinitions": {
        "AdminID": {"type": "apiKey", "name": "X-Admin-ID", "in": "header"},
        "WebhookSecret": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/events/group": {
            "post": {
                "security": [{"WebhookSecret": []}],
                "description": "Track the bot's own status change in a group",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Group lifecycle event",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/group.LifecycleRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/events/membership": {
            "post": {
                "security": [{"WebhookSecret": []}],
                "description": "Record a subject's role change in a managed group",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Membership event",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/member.EventRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "List managed groups",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/groups/{id}": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Group roster with remaining rental time",
                "parameters": [{"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/members": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "List tracked members",
                "parameters": [{"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/entitlements": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "List a group's entitlements",
                "parameters": [{"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            },
            "post": {
                "security": [{"AdminID": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "Grant an entitlement",
                "parameters": [
                    {"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/entitlement.GrantRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/entitlements/{subjectId}": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "Get an entitlement",
                "parameters": [
                    {"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Subject ID", "name": "subjectId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "Revoke an entitlement",
                "parameters": [
                    {"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Subject ID", "name": "subjectId", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/groups/{id}/entitlements/{subjectId}/extend": {
            "post": {
                "security": [{"AdminID": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "Extend an entitlement",
                "parameters": [
                    {"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Subject ID", "name": "subjectId", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/entitlement.ExtendRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/entitlements": {
            "post": {
                "security": [{"AdminID": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "Grant in every joined group",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/entitlement.GrantEverywhereRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/entitlements/{subject}": {
            "delete": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["entitlements"],
                "summary": "Revoke in every group",
                "parameters": [{"type": "string", "description": "Subject ID or @handle", "name": "subject", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/admins": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["admins"],
                "summary": "List admins",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            },
            "post": {
                "security": [{"AdminID": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admins"],
                "summary": "Add an admin",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/admin.AddRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/admins/{id}": {
            "delete": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["admins"],
                "summary": "Remove an admin",
                "parameters": [{"type": "integer", "description": "Admin ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/sweeps": {
            "post": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["sweeps"],
                "summary": "Run a sweep now",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/notifications": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List the caller's notifications",
                "parameters": [
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page (max 100)", "name": "per_page", "in": "query"},
                    {"type": "boolean", "description": "Only unread notifications", "name": "unread_only", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/notifications/unread-count": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Count unread notifications",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/notifications/read-all": {
            "post": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Mark every notification as read",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}}
            }
        },
        "/notifications/{id}": {
            "get": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Get a notification",
                "parameters": [{"type": "string", "description": "Notification ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "security": [{"AdminID": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Mark a notification as read",
                "parameters": [{"type": "string", "description": "Notification ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "admin.AddRequest": {
            "type": "object",
            "required": ["subject_id"],
            "properties": {"subject_id": {"type": "integer"}}
        },
        "entitlement.ExtendRequest": {
            "type": "object",
            "required": ["duration"],
            "properties": {"duration": {"type": "string", "example": "2w"}}
        },
        "entitlement.GrantEverywhereRequest": {
            "type": "object",
            "required": ["duration", "subject"],
            "properties": {
                "duration": {"type": "string", "example": "1w"},
                "subject": {"type": "string", "example": "@alice"}
            }
        },
        "entitlement.GrantRequest": {
            "type": "object",
            "required": ["duration", "subject_id"],
            "properties": {
                "duration": {"type": "string", "example": "1m"},
                "subject_id": {"type": "integer"}
            }
        },
        "group.LifecycleRequest": {
            "type": "object",
            "required": ["group_id", "new_status"],
            "properties": {
                "group_id": {"type": "integer"},
                "new_status": {"type": "string", "enum": ["added", "removed"]},
                "title": {"type": "string"}
            }
        },
        "member.EventRequest": {
            "type": "object",
            "required": ["group_id", "subject_id"],
            "properties": {
                "display_name": {"type": "string"},
                "group_id": {"type": "integer"},
                "handle": {"type": "string"},
                "new_status": {"type": "string", "example": "member"},
                "old_status": {"type": "string", "example": "left"},
                "subject_id": {"type": "integer"},
                "timestamp": {"type": "string"}
            }
        },
        "response.APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "response.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/response.APIError"},
                "meta": {"$ref": "#/definitions/response.Meta"},
                "success": {"type": "boolean"}
            }
        },
        "response.Meta": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Rentguard API",
	Description:      "Time-limited group membership: entitlements, expiry sweeps and admin notices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
