package domain

// These names are shared with data already sitting in the store and must not
// change.

func PostHandle(username, postId string) string {
	return PostHandlePrefix(username) + postId
}

func PostHandlePrefix(username string) string {
	return username + "-post-"
}

func ListHandle(username string) string {
	return username + "-feed-list"
}

func PostAltText(username, postId string) string {
	return AltTextPrefix(username) + postId
}

func ChildAltText(username, postId, childId string) string {
	return AltTextPrefix(username) + postId + "_" + childId
}

func AltTextPrefix(username string) string {
	return username + "-post_"
}
