package graph

// Cypher used by Neo4jGraph. Every value is passed as a parameter.
const (
	cypherConstraintUser  = `CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.userId IS UNIQUE`
	cypherConstraintItem  = `CREATE CONSTRAINT item_id IF NOT EXISTS FOR (i:Item) REQUIRE i.itemId IS UNIQUE`
	cypherConstraintGenre = `CREATE CONSTRAINT genre_name IF NOT EXISTS FOR (g:Genre) REQUIRE g.name IS UNIQUE`

	cypherUpsertUser = `
		MERGE (u:User {userId: $userId})
		SET u.username = $username`

	cypherUserExists = `
		MATCH (u:User {userId: $userId})
		RETURN u.userId AS userId`

	cypherUpsertItem = `
		MERGE (i:Item {itemId: $itemId})
		SET i.title = $title
		WITH i
		UNWIND $genres AS genreName
		MERGE (g:Genre {name: genreName})
		MERGE (i)-[:HAS_GENRE]->(g)`

	cypherUpsertKnows = `
		MERGE (a:User {userId: $fromId})
		SET a.username = $fromUsername
		MERGE (b:User {userId: $toId})
		SET b.username = $toUsername
		MERGE (a)-[:KNOWS]->(b)`

	cypherUpsertPlay = `
		MATCH (u:User {userId: $userId})
		MATCH (i:Item {itemId: $itemId})
		MERGE (u)-[r:PLAYS]->(i)
		SET r.status = $status, r.rating = $rating, r.playedAt = $playedAt`

	cypherFriendsActivity = `
		MATCH (me:User {userId: $userId})-[:KNOWS]->(friend:User)-[p:PLAYS]->(item:Item)
		WHERE NOT EXISTS { (me)-[:PLAYS]->(item) }
		WITH item, collect(DISTINCT friend.username) AS friends, max(p.playedAt) AS lastPlayed
		RETURN item.itemId AS itemId, item.title AS title, friends, lastPlayed
		ORDER BY lastPlayed DESC, size(friends) DESC, itemId ASC
		LIMIT $limit`

	cypherGenreCandidates = `
		MATCH (me:User {userId: $userId})-[:PLAYS]->(:Item)-[:HAS_GENRE]->(g:Genre)
		WITH me, g, count(*) AS playedInGenre
		ORDER BY playedInGenre DESC, g.name ASC
		LIMIT $topGenres
		MATCH (g)<-[:HAS_GENRE]-(cand:Item)
		WHERE NOT EXISTS { (me)-[:PLAYS]->(cand) }
		WITH cand, collect(DISTINCT g.name) AS common, count(DISTINCT g) AS shared,
		     sum(playedInGenre) AS affinity
		RETURN cand.itemId AS itemId, cand.title AS title, common, shared, affinity
		ORDER BY shared DESC, size(common) DESC, affinity DESC, itemId ASC
		LIMIT $limit`

	// Both branches return the same columns; friends-of-friends carry a null
	// genre so they survive with an empty common-genre list.
	cypherFriendCandidates = `
		MATCH (me:User {userId: $userId})
		CALL {
			WITH me
			MATCH (me)-[:KNOWS]->(:User)-[:KNOWS]->(cand:User)
			WHERE cand <> me AND NOT EXISTS { (me)-[:KNOWS]->(cand) }
			RETURN cand, null AS genre, true AS viaFriend
			UNION
			WITH me
			MATCH (me)-[:PLAYS]->(:Item)-[:HAS_GENRE]->(g:Genre)
			WITH DISTINCT me, g
			MATCH (g)<-[:HAS_GENRE]-(:Item)<-[:PLAYS]-(cand:User)
			WHERE cand <> me AND NOT EXISTS { (me)-[:KNOWS]->(cand) }
			RETURN cand, g.name AS genre, false AS viaFriend
		}
		WITH cand, collect(DISTINCT genre) AS common, collect(viaFriend) AS paths
		RETURN cand.userId AS userId, cand.username AS username, common,
		       size(common) AS score, any(p IN paths WHERE p) AS isFOF
		ORDER BY isFOF DESC, score DESC, username ASC, userId ASC
		LIMIT $limit`

	cypherStats = `
		CALL { MATCH (u:User) RETURN count(u) AS users }
		CALL { MATCH (i:Item) RETURN count(i) AS items }
		CALL { MATCH (g:Genre) RETURN count(g) AS genres }
		CALL { MATCH (:User)-[r:KNOWS]->(:User) RETURN count(r) AS knows }
		CALL { MATCH (:User)-[r:PLAYS]->(:Item) RETURN count(r) AS plays }
		CALL { MATCH (:Item)-[r:HAS_GENRE]->(:Genre) RETURN count(r) AS hasGenre }
		RETURN users, items, genres, knows, plays, hasGenre`
)
