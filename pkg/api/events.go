package api

// Client -> server events.
const (
	EventJoin                     = "join"
	EventSetActivity              = "set-activity"
	EventRequestInitialData       = "request-initial-data"
	EventDrawingUpdate            = "drawing-update"
	EventDrawingCompleted         = "drawing-completed"
	EventDrawingPointChanged      = "drawing-point-changed"
	EventGetCurrentDrawings       = "get-current-drawings"
	EventRequestUserDrawing       = "request-user-drawing"
	EventEditingPolygon           = "editing-polygon"
	EventPolygonCoordinatesUpdate = "polygon-coordinates-update"
	EventCalculateArea            = "calculate-area"
	EventSavePolygon              = "save-polygon"
	EventUpdatePolygon            = "update-polygon"
	EventDeletePolygon            = "delete-polygon"
	EventGetAllPolygons           = "get-all-polygons"
	EventGetPolygonsByLayer       = "get-polygons-by-layer"
	EventGetAllLayers             = "get-all-layers"
	EventCreateLayer              = "create-layer"
	EventUpdateLayer              = "update-layer"
	EventDeleteLayer              = "delete-layer"
	EventMapBounds                = "map-bounds"
)

// Server -> client events. EventDrawingUpdate is reused in both directions.
const (
	EventUsersUpdated      = "users-updated"
	EventInitialData       = "initial-data"
	EventDrawingEnded      = "drawing-ended"
	EventUserDrawingStatus = "user-drawing-status"
	EventPolygonEditing    = "polygon-editing"
	EventPolygonSaved      = "polygon-saved"
	EventPolygonUpdated    = "polygon-updated"
	EventPolygonDeleted    = "polygon-deleted"
	EventLayerCreated      = "layer-created"
	EventLayerUpdated      = "layer-updated"
	EventLayerDeleted      = "layer-deleted"
	EventPolygonsInBounds  = "polygons-in-bounds"
	EventError             = "error"
)
