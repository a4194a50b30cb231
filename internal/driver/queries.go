package driver

const (
	SaveObservationQuery = `
		MERGE (n:Observation {id: $id})
		SET n.full_name = $full_name,
			n.email = $email,
			n.phone = $phone,
			n.address = $address
		RETURN n.id AS id
	`

	SaveNormalizedQuery = `
		MATCH (n:Observation {id: $id})
		SET n.norm_full_name = $full_name,
			n.norm_email = $email,
			n.norm_phone = $phone,
			n.norm_address = $address
		RETURN n.id AS id
	`

	SaveSimilarEdgeQuery = `
		MATCH (a:Observation {id: $a})
		MATCH (b:Observation {id: $b})
		MERGE (a)-[e:SIMILAR_TO]-(b)
		SET e.score = $score,
			e.field_scores = $field_scores
		RETURN e.score AS score
	`

	DeleteObservationQuery = `
		MATCH (n:Observation {id: $id})
		DETACH DELETE n
	`

	SaveClusterIDQuery = `
		MATCH (n:Observation {id: $id})
		SET n.cluster_id = $cluster_id
		RETURN n.id AS id
	`

	SaveMasterEntityQuery = `
		MERGE (m:MasterEntity {uuid: $uuid})
		SET m.cluster_id = $cluster_id,
			m.full_name = $full_name,
			m.email = $email,
			m.phone = $phone,
			m.address = $address,
			m.created_at = $created_at
		RETURN m.uuid AS uuid
	`

	SaveAssignmentQuery = `
		MATCH (n:Observation {id: $record_id})
		MATCH (m:MasterEntity {uuid: $master_uuid})
		MERGE (n)-[r:RESOLVED_TO]->(m)
		RETURN n.id AS id
	`

	SaveSameAsQuery = `
		MATCH (a:Observation {id: $a})
		MATCH (b:Observation {id: $b})
		MERGE (a)-[r:SAME_AS]-(b)
		RETURN a.id AS id
	`
)
