//go:build component
// +build component

package component

func (s *ComponentTestSuite) TestCreateUser() {
	_, when, then := s.gherkin()

	when().
		aCreateUserRequestIsIssued()

	then().
		theCreateUserResponseContainsAValidUser().
		fetchingTheUserByNicknameReturnsTheCreatedUser().
		anEventForTheUserCreationWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestCreateUserWithTakenNickname() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		aCreateUserRequestWithTheSameNicknameIsIssued()

	then().
		theResponseIsAConflictOn("nickname")
}

func (s *ComponentTestSuite) TestUpdateUser() {
	given, when, then := s.gherkin()

	given().
		anExistingUser().
		theUserIsLoggedIn()

	when().
		theUserGetsUpdated()

	then().
		theUpdateIsAccepted().
		fetchingTheUserByIDReturnsTheUpdatedUser().
		anEventForTheUserUpdateWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestUpdateUserWithoutToken() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		theUserGetsUpdated()

	then().
		theUpdateIsRejectedAsUnauthorized()
}

func (s *ComponentTestSuite) TestDeleteUser() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		aUserDeletionRequestIsIssued()

	then().
		fetchingTheUserByIDReturnsNotFound().
		anEventForTheUserDeletionWillEventuallyBeProduced()
}
