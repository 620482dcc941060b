package driver

var IndexQueries = []string{
	"CREATE INDEX ON :SavedAnnotation(uuid);",
	"CREATE INDEX ON :SavedAnnotation(stash);",
	"CREATE INDEX ON :SavedAnnotation(workspace_id);",
}

const (
	SaveAnnotationQuery = `
		MERGE (n:SavedAnnotation {uuid: $uuid})
		SET n.created_at = $created_at,
			n.stash = $stash,
			n.workspace_id = $workspace_id,
			n.annotation_id = $annotation_id,
			n.category = $category,
			n.json = $json
		RETURN n.uuid AS uuid
	`

	ListAnnotationsQuery = `
		MATCH (n:SavedAnnotation)
		WHERE $stash = '' OR n.stash = $stash
		RETURN n.uuid AS uuid, n.created_at AS created_at, n.stash AS stash, n.json AS json
		ORDER BY n.created_at ASC, n.uuid ASC
	`

	GetAnnotationQuery = `
		MATCH (n:SavedAnnotation {uuid: $uuid})
		RETURN n.uuid AS uuid, n.created_at AS created_at, n.stash AS stash, n.json AS json
	`

	MoveAnnotationQuery = `
		MATCH (n:SavedAnnotation {uuid: $uuid})
		SET n.stash = $stash
		RETURN n.uuid AS uuid
	`

	DeleteAnnotationQuery = `
		MATCH (n:SavedAnnotation {uuid: $uuid})
		DETACH DELETE n
		RETURN count(n) AS deleted
	`

	ClearAnnotationsQuery = `
		MATCH (n:SavedAnnotation)
		WHERE $stash = '' OR n.stash = $stash
		DETACH DELETE n
		RETURN count(n) AS deleted
	`
)
