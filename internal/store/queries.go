package store

const (
	SaveSourceQuery = `
		MERGE (s:Source {uuid: $uuid})
		SET s.name = $name,
			s.text = $text,
			s.created_at = $created_at
		RETURN s.uuid AS uuid
	`

	SaveEvidenceUnitQuery = `
		MATCH (s:Source {uuid: $source_uuid})
		MERGE (u:EvidenceUnit {uuid: $uuid})
		SET u.source_uuid = $source_uuid,
			u.snippet = $snippet,
			u.start_index = $start_index,
			u.end_index = $end_index,
			u.quality_score = $quality_score,
			u.confidence = $confidence,
			u.topics = $topics,
			u.metadata = $metadata,
			u.created_at = $created_at
		MERGE (s)-[:HAS_UNIT]->(u)
		RETURN u.uuid AS uuid
	`

	GetSourceQuery = `
		MATCH (s:Source {uuid: $uuid})
		RETURN s.uuid AS uuid, s.name AS name, s.text AS text
	`

	GetUnitsBySourceQuery = `
		MATCH (s:Source {uuid: $source_uuid})-[:HAS_UNIT]->(u:EvidenceUnit)
		RETURN u.uuid AS uuid, u.snippet AS snippet,
			u.start_index AS start_index, u.end_index AS end_index,
			u.quality_score AS quality_score, u.confidence AS confidence,
			u.topics AS topics, u.metadata AS metadata
		ORDER BY u.start_index ASC
	`
)
