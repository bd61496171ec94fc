package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Timetable API",
        "description": "Timetabling administration backend: scheduling, conflict detection and timetable delivery",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Users", "description": "Account administration"},
        {"name": "Teachers", "description": "Teacher roster management"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Programs", "description": "Degree programs"},
        {"name": "Groups", "description": "Student groups"},
        {"name": "Rooms", "description": "Teaching rooms"},
        {"name": "Courses", "description": "Course catalogue"},
        {"name": "TimeSlots", "description": "Weekly slot grid"},
        {"name": "Availabilities", "description": "Teacher availability declarations"},
        {"name": "Calendar", "description": "Institutional calendar events"},
        {"name": "Assignments", "description": "Scheduled sessions"},
        {"name": "Generation", "description": "Automatic timetable generation"},
        {"name": "Conflicts", "description": "Double-booking detection and resolution"},
        {"name": "Reports", "description": "Postponement requests"},
        {"name": "Notifications", "description": "In-app notifications"},
        {"name": "Timetables", "description": "Timetable views and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens refreshed"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Create assignment",
                "responses": {
                    "201": {"description": "Created; conflicts reported in meta"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/assignments/generate": {
            "post": {
                "tags": ["Generation"],
                "summary": "Generate assignments for a window",
                "responses": {
                    "200": {"description": "Generation result"},
                    "409": {"description": "A run is already in progress"},
                    "412": {"description": "Missing slots, rooms or teachers"}
                }
            }
        },
        "/conflicts/detect": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Run conflict detection over a window",
                "responses": {"200": {"description": "Newly persisted conflicts"}}
            }
        },
        "/conflicts/{id}/resolve": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Resolve a conflict",
                "responses": {
                    "200": {"description": "Resolved"},
                    "409": {"description": "Already resolved"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "File a postponement request",
                "responses": {
                    "201": {"description": "Pending request created"},
                    "409": {"description": "A pending request already exists"}
                }
            }
        },
        "/timetables/groups/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Group timetable (json, csv or pdf)",
                "responses": {"200": {"description": "Timetable entries or export payload"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
